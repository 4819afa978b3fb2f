// Package domain holds the persisted entities and the request/response
// shapes shared between handlers, services and infra clients.
package domain

import (
	"time"
)

// Company statuses. New registrations start PENDING and are flipped to
// ACTIVE or REJECTED by a super admin through the approval bot.
const (
	CompanyStatusPending  = "PENDING"
	CompanyStatusActive   = "ACTIVE"
	CompanyStatusRejected = "REJECTED"
)

// User roles.
const (
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// ScoreNew is the neutral qualification label used when the summarizer
// is unavailable or returns no score.
const ScoreNew = "NEW"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation transcript. Transcripts are
// append-only; a Message is never mutated once appended.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// VisitorProfile is the contact data collected by the lead-capture flow.
// All fields are optional raw strings; no format validation is applied.
type VisitorProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// HasContact reports whether the profile is worth persisting as a Lead.
func (p VisitorProfile) HasContact() bool {
	return p.Email != "" || p.Phone != ""
}

// User is a dashboard account. Super admins may carry the approval-bot
// credentials; the chat id is filled in when they /start the bot.
type User struct {
	ID               string    `json:"id" gorm:"primaryKey;type:uuid"`
	Email            string    `json:"email" gorm:"uniqueIndex"`
	PasswordHash     string    `json:"-"`
	Role             string    `json:"role" gorm:"default:ADMIN"`
	TelegramBotToken string    `json:"telegramBotToken,omitempty"`
	TelegramChatID   string    `json:"telegramChatId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Company is a tenant workspace: its own knowledge base, prompt, leads
// and integration settings.
type Company struct {
	ID              string `json:"id" gorm:"primaryKey;type:uuid"`
	UserID          string `json:"userId" gorm:"index"`
	Name            string `json:"name"`
	SystemPrompt    string `json:"systemPrompt"`
	GreetingMessage string `json:"greetingMessage"`
	VectorNamespace string `json:"vectorNamespace" gorm:"uniqueIndex"`
	APIKey          string `json:"apiKey"`
	Status          string `json:"status" gorm:"default:PENDING"`

	// Integration settings, all optional. Absence disables the sink.
	GoogleSheetID    string `json:"googleSheetId,omitempty"`
	TelegramBotToken string `json:"telegramBotToken,omitempty"`
	TelegramChatID   string `json:"telegramChatId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Documents []Document `json:"documents,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Leads     []Lead     `json:"leads,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// IsActive reports whether the tenant may serve chat traffic.
func (c *Company) IsActive() bool {
	return c.Status == CompanyStatusActive
}

// Document is one ingested knowledge-base entry (raw text, parsed file
// or scraped URL). The vector copy lives in the AI service.
type Document struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	CompanyID string    `json:"companyId" gorm:"index"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Metadata  string    `json:"metadata,omitempty"`
	IsActive  bool      `json:"isActive" gorm:"default:true"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lead is a visitor who provided contact information. Identity is
// (company_id, email): lookups match-or-create, never duplicate.
type Lead struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	CompanyID string    `json:"companyId" gorm:"uniqueIndex:idx_leads_company_email"`
	Name      string    `json:"name"`
	Email     string    `json:"email" gorm:"uniqueIndex:idx_leads_company_email"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status" gorm:"default:NEW"`
	CreatedAt time.Time `json:"createdAt"`

	Conversations []Conversation `json:"conversations,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// DashboardStats is the counter block for GET /company/stats.
type DashboardStats struct {
	Companies     int64 `json:"companies"`
	Documents     int64 `json:"documents"`
	Conversations int64 `json:"conversations"`
}

// Conversation is one completed, summarized chat session. Created once
// per terminated session and never mutated afterwards.
type Conversation struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	LeadID    string    `json:"leadId" gorm:"index"`
	History   []Message `json:"history" gorm:"serializer:json"`
	Summary   string    `json:"summary"`
	Score     string    `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}
