package main

import (
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"

	svc "github.com/diltak/mindtak-sub001/services"
)

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name           string
		allowedOrigins string
		requestOrigin  string
		expected       bool
	}{
		{
			name:           "Dashboard origin allowed",
			allowedOrigins: "https://wellness.diltak.io",
			requestOrigin:  "https://wellness.diltak.io",
			expected:       true,
		},
		{
			name:           "Second origin in the list allowed",
			allowedOrigins: "https://wellness.diltak.io,https://admin.diltak.io",
			requestOrigin:  "https://admin.diltak.io",
			expected:       true,
		},
		{
			name:           "Unknown origin rejected",
			allowedOrigins: "https://wellness.diltak.io,https://admin.diltak.io",
			requestOrigin:  "https://evil.example.com",
			expected:       false,
		},
		{
			name:           "Empty allow-list denies everything",
			allowedOrigins: "",
			requestOrigin:  "https://wellness.diltak.io",
			expected:       false,
		},
		{
			name:           "Whitespace around entries is tolerated",
			allowedOrigins: "https://wellness.diltak.io, http://localhost:5173",
			requestOrigin:  "http://localhost:5173",
			expected:       true,
		},
		{
			name:           "Scheme mismatch rejected",
			allowedOrigins: "https://wellness.diltak.io",
			requestOrigin:  "http://wellness.diltak.io",
			expected:       false,
		},
		{
			name:           "Dev port mismatch rejected",
			allowedOrigins: "http://localhost:5173",
			requestOrigin:  "http://localhost:3000",
			expected:       false,
		},
		{
			name:           "Subdomain is not implicitly allowed",
			allowedOrigins: "https://diltak.io",
			requestOrigin:  "https://wellness.diltak.io",
			expected:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			viper.Set("websocket.allowed_origins", tt.allowedOrigins)

			req := httptest.NewRequest("GET", "/api/v1/ws", nil)
			req.Header.Set("Origin", tt.requestOrigin)

			allowed := viper.GetString("websocket.allowed_origins")
			result := svc.CheckOrigin(req, allowed)

			if result != tt.expected {
				t.Errorf("CheckOrigin() = %v, expected %v for origin %s with allowed origins %s",
					result, tt.expected, tt.requestOrigin, tt.allowedOrigins)
			}
		})
	}
}
