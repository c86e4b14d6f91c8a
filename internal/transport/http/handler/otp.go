package handler

import (
	"net/http"

	"github.com/time-capsule-api/internal/application/auth"
	"github.com/time-capsule-api/internal/domain"
)

// OTPHandler handles one-time code endpoints: passwordless login, email
// verification and password recovery.
type OTPHandler struct {
	svc auth.Service
}

func NewOTPHandler(svc auth.Service) *OTPHandler { return &OTPHandler{svc: svc} }

func (h *OTPHandler) issue(w http.ResponseWriter, r *http.Request, purpose domain.Purpose, msg string) {
	var req auth.CodeRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	if err := h.svc.Issue(r.Context(), req.Email, purpose); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}

func (h *OTPHandler) StartLogin(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, domain.PurposeLoginOTP, "OTP sent to email")
}

func (h *OTPHandler) RequestEmailVerification(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, domain.PurposeEmailVerify, "verification code sent")
}

func (h *OTPHandler) RecoverPassword(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, domain.PurposeRecoveryOTP, "reset code sent")
}

func (h *OTPHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyCodeRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.svc.VerifyLoginOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthEnvelope(res))
}

func (h *OTPHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyCodeRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email verified"})
}

func (h *OTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetPasswordRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
}
