package httpserver

import (
	"net/http"
	"time"

	"berater-api/internal/directory"
	"berater-api/internal/model"
	"berater-api/internal/offers"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := s.services.Auth.Signup(r.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: user.Public(), Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := s.services.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: user.Public(), Token: token})
}

func (s *Server) handleListBerater(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.services.Directory.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleGetBerater(w http.ResponseWriter, r *http.Request) {
	profile, err := s.services.Directory.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleCreateBerater(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}

	var input directory.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := s.services.Directory.Create(r.Context(), identity, input)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

type createReviewRequest struct {
	BeraterID string `json:"beraterId"`
	Rating    int    `json:"rating"`
	Text      string `json:"text"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.services.Reviews.Create(r.Context(), identity, req.BeraterID, req.Rating, req.Text)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type chatMessageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Sender    string `json:"sender,omitempty"`
}

func (s *Server) handleAppendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := s.services.Chat.Append(r.Context(), req.SessionID, req.Message, req.Sender)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	messages, err := s.services.Chat.Transcript(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type createQRRequest struct {
	BeraterID string `json:"beraterId"`
	Type      string `json:"type,omitempty"`
}

func (s *Server) handleCreateQR(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req createQRRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	artifact, err := s.services.QR.Create(r.Context(), identity, req.BeraterID, req.Type)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, artifact)
}

func (s *Server) handleResolveQR(w http.ResponseWriter, r *http.Request) {
	target, err := s.services.QR.Resolve(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}

	overview, err := s.services.Analytics.GetOverview(r.Context(), identity)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	list, err := s.services.Offers.ListByCategory(r.Context(), r.PathValue("category"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}

	var input offers.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	offer, err := s.services.Offers.Create(r.Context(), identity, input)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	result, err := s.services.Seed.Initialize(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.services.Store != nil {
		if err := s.services.Store.Ping(r.Context()); err != nil {
			s.logger.Warn("health check store ping failed", "error", err)
			if s.metrics != nil {
				s.metrics.StoreErrors.WithLabelValues("health").Inc()
			}
			status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
