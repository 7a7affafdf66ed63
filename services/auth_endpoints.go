package services

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type AuthEndpoints struct {
	authService *AuthService
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func NewAuthEndpoints(authService *AuthService) *AuthEndpoints {
	return &AuthEndpoints{
		authService: authService,
	}
}

func (e *AuthEndpoints) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	authResponse, err := e.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.Error("Login failed", "error", err, "email", req.Email)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken, authResponse.RefreshToken)

	response := map[string]interface{}{
		"success": true,
		"user":    userSummary(authResponse),
		"message": "Login successful",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	slog.Info("User logged in", "user_id", authResponse.User.ID, "email", authResponse.User.Email)
}

// RegisterHandler is the employer self-registration path. It creates a new
// company with the registrant as its root; employees and managers are added
// afterwards through the employee endpoints.
func (e *AuthEndpoints) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		http.Error(w, "email, password and full_name are required", http.StatusBadRequest)
		return
	}

	authResponse, err := e.authService.RegisterEmployer(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		slog.Error("Registration failed", "error", err, "email", req.Email)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken, authResponse.RefreshToken)

	response := map[string]interface{}{
		"success": true,
		"user":    userSummary(authResponse),
		"message": "Registration successful",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	slog.Info("Employer registered", "user_id", authResponse.User.ID, "email", authResponse.User.Email)
}

func (e *AuthEndpoints) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	refreshToken := e.authService.GetTokenFromCookie(r, "refresh_token")
	if refreshToken == "" {
		http.Error(w, "No refresh token provided", http.StatusUnauthorized)
		return
	}

	authResponse, err := e.authService.RefreshToken(r.Context(), refreshToken)
	if err != nil {
		slog.Error("Token refresh failed", "error", err)
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	e.authService.SetAuthCookies(w, authResponse.AccessToken, authResponse.RefreshToken)

	response := map[string]interface{}{
		"success": true,
		"message": "Token refreshed successfully",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	slog.Info("Token refreshed", "user_id", authResponse.User.ID)
}

func (e *AuthEndpoints) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	if err := e.authService.Logout(r.Context(), user.ID); err != nil {
		slog.Error("Logout failed", "error", err, "user_id", user.ID)
		http.Error(w, "Logout failed", http.StatusInternalServerError)
		return
	}

	e.authService.ClearAuthCookies(w)

	response := map[string]interface{}{
		"success": true,
		"message": "Logout successful",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	slog.Info("User logged out", "user_id", user.ID)
}

func (e *AuthEndpoints) MeHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	perms := EffectivePermissions(user)
	response := map[string]interface{}{
		"success": true,
		"user": map[string]interface{}{
			"id":              user.ID,
			"email":           user.Email,
			"full_name":       user.FullName,
			"role":            user.Role,
			"company_id":      user.CompanyID,
			"department":      user.Department,
			"hierarchy_level": user.HierarchyLevel,
			"permissions":     perms.Capabilities(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func userSummary(authResponse *AuthResponse) map[string]interface{} {
	return map[string]interface{}{
		"id":         authResponse.User.ID,
		"email":      authResponse.User.Email,
		"full_name":  authResponse.User.FullName,
		"role":       authResponse.User.Role,
		"company_id": authResponse.User.CompanyID,
	}
}
