package handler

import "github.com/go-chi/chi/v5"

// Register mounts the public, function and admin routes on r.
func Register(r chi.Router, leads *LeadHandler, fns *FunctionHandler) {
	r.Post("/leads", leads.Create)
	r.Post("/cta/{type}", fns.SubmitCTA)

	r.Route("/functions", func(r chi.Router) {
		r.Post("/send-lead-notification", fns.SendLeadNotification)
		r.Post("/generate-lead-reply", fns.GenerateLeadReply)
	})

	// TODO: put the admin routes behind operator authentication.
	r.Route("/admin/leads", func(r chi.Router) {
		r.Get("/", leads.List)
		r.Get("/{id}", leads.GetByID)
		r.Patch("/{id}/status", leads.UpdateStatus)
		r.Patch("/{id}/notes", leads.UpdateNotes)
		r.Patch("/{id}/ai-suggestion", leads.UpdateAISuggestion)
		r.Post("/{id}/reply", leads.GenerateReply)
	})
}
