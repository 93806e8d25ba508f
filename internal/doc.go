// Package internal implements the storefront request pipeline and the app that runs it.
//
// Every request routed to a handler first passes through an ordered list of stages:
//
//	security_headers → decode_body → upload_gate → session → csrf → identity → upload_store
//
// A stage returns an Outcome. Continue and ContinueWith pass control on; Respond and Fail
// stop the chain. Failures go to the app's ErrorHandler, which renders them without
// exposing the cause. Each stage runs inside its own trace span and is counted in
// storefront_pipeline_outcomes_total{stage,outcome,class}.
//
// Sessions are loaded by the session stage and written back by a hook that runs right
// before the response header is committed. If that write fails, the response is replaced
// with a bare 500 and no cookie is sent.
//
// Handlers receive a Context, which is also a context.Context:
//
//	func (h *Products) show(c storefront.Context) error {
//		p, err := h.repo.Get(c, c.Param("id"))
//		if err != nil {
//			return err
//		}
//		return c.Render(http.StatusOK, views.Product(p, c.CSRFToken()))
//	}
package internal
