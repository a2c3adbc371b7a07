package controllers

import (
	"net/http"

	"github.com/tailrace/lobby-backend/api/middleware"
	"github.com/tailrace/lobby-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if address := middleware.AddressFromContext(r.Context()); address != "" {
			payload["address"] = address
		}
		responses.WriteSuccess(w, payload)
	}
}
