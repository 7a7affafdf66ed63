package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - User, RefreshToken from user.go
// - WellnessReport, CoachSession from report.go
// - CallRecord, CallSession from call.go

// Database schema overview:
// 1. users - Directory records with role, manager linkage, and override flags;
//    the manager_id edges form a forest per company
// 2. refresh_tokens - Cookie-based authentication support
// 3. coach_sessions - Records each coaching attempt for a user
// 4. wellness_reports - Append-only structured report per completed session
// 5. call_records / call_sessions - Denormalized call ledger (durable row +
//    live projection kept in lockstep)
