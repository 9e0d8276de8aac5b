package server

import (
	"github.com/gorilla/mux"
	"github.com/ternarybob/quaero/internal/handlers"
)

// registerRoutes wires the REST surface described in spec §6 onto router.
func (s *Server) registerRoutes(router *mux.Router) {
	h := handlers.New(s.app)

	router.HandleFunc("/healthz", h.Healthz).Methods("GET")
	router.HandleFunc("/readyz", h.Readyz).Methods("GET")

	router.HandleFunc("/tasks/seek-scraper", h.CreateSeekScraper).Methods("POST")
	router.HandleFunc("/tasks/resume-job-matching", h.CreateResumeJobMatching).Methods("POST")
	router.HandleFunc("/tasks/job-agent", h.CreateJobAgent).Methods("POST")

	router.HandleFunc("/tasks/found-jobs", h.ListFoundJobs).Methods("GET")
	router.HandleFunc("/tasks/found-jobs/{job_id}", h.GetFoundJob).Methods("GET")
	router.HandleFunc("/tasks/found-jobs/{job_id}", h.UpdateFoundJob).Methods("PUT")

	router.HandleFunc("/tasks/resumes", h.ListResumes).Methods("GET")

	router.HandleFunc("/tasks/{task_id}/events", h.TaskEvents).Methods("GET")
	router.HandleFunc("/tasks/{task_id}", h.GetTask).Methods("GET")
	router.HandleFunc("/tasks/{task_id}", h.UpdateTask).Methods("PUT")
	router.HandleFunc("/tasks", h.ListTasks).Methods("GET")
}
