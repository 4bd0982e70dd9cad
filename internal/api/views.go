package api

import (
	"time"

	"github.com/zulandar/switchboard/internal/models"
)

type messageResponse struct {
	Message string `json:"message"`
}

type requestView struct {
	ID               uint       `json:"id"`
	Status           string     `json:"status"`
	Message          string     `json:"message"`
	CustomerID       uint       `json:"customerId"`
	CustomerEmail    string     `json:"customerEmail,omitempty"`
	AgentID          *uint      `json:"agentId"`
	AgentEmail       string     `json:"agentEmail,omitempty"`
	Score            float64    `json:"score"`
	IsScored         bool       `json:"isScored"`
	CreationTime     time.Time  `json:"creationTime"`
	AssignedTime     *time.Time `json:"assignedTime"`
	ConfirmationTime *time.Time `json:"confirmationTime"`
	FinishTime       *time.Time `json:"finishTime"`
}

func newRequestView(r models.Request) requestView {
	v := requestView{
		ID:               r.ID,
		Status:           r.Status,
		Message:          r.Message,
		CustomerID:       r.CustomerID,
		CustomerEmail:    r.Customer.Email,
		AgentID:          r.AgentID,
		Score:            r.Score,
		IsScored:         r.IsScored,
		CreationTime:     r.CreatedAt,
		AssignedTime:     r.AssignedAt,
		ConfirmationTime: r.ConfirmedAt,
		FinishTime:       r.FinishedAt,
	}
	if r.Agent != nil {
		v.AgentEmail = r.Agent.User.Email
	}
	return v
}

func newRequestViews(rs []models.Request) []requestView {
	out := make([]requestView, 0, len(rs))
	for _, r := range rs {
		out = append(out, newRequestView(r))
	}
	return out
}

type createResponse struct {
	Message string      `json:"message"`
	Request requestView `json:"request"`
}

type agentView struct {
	ID     uint    `json:"id"`
	Email  string  `json:"email"`
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}

func newAgentView(a *models.Agent) agentView {
	return agentView{ID: a.UserID, Email: a.User.Email, Status: a.Status, Score: a.Score}
}

type notificationView struct {
	ID        uint      `json:"id"`
	RequestID *uint     `json:"requestId"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func newNotificationViews(ns []models.Notification) []notificationView {
	out := make([]notificationView, 0, len(ns))
	for _, n := range ns {
		out = append(out, notificationView{ID: n.ID, RequestID: n.RequestID, Subject: n.Subject, Body: n.Body, CreatedAt: n.CreatedAt})
	}
	return out
}

type tickView struct {
	ID         string   `json:"id"`
	Contended  bool     `json:"contended"`
	Scanned    int      `json:"scanned"`
	Stale      int      `json:"stale"`
	Reassigned []uint   `json:"reassigned"`
	Requeued   []uint   `json:"requeued"`
	Skipped    int      `json:"skipped"`
	Failures   []string `json:"failures,omitempty"`
}
