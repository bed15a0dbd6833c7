package models

import "time"

type StartWorkflowRequest struct {
	WorkflowID string         `json:"workflowId" validate:"required"`
	UserEmail  string         `json:"userEmail" validate:"required,email"`
	UserID     string         `json:"userId" validate:"required"`
	Metadata   map[string]any `json:"metadata"`
}

type StartWorkflowResponse struct {
	Success    bool   `json:"success"`
	InstanceID string `json:"instanceId"`
	Message    string `json:"message,omitempty"`
}

type StopWorkflowRequest struct {
	InstanceID string `json:"instanceId" validate:"required"`
}

type TriggerEventRequest struct {
	Trigger   string         `json:"trigger" validate:"required"`
	UserEmail string         `json:"userEmail" validate:"required,email"`
	UserID    string         `json:"userId" validate:"required"`
	Metadata  map[string]any `json:"metadata"`
}

type TriggerEventResponse struct {
	Success     bool     `json:"success"`
	InstanceIDs []string `json:"instanceIds"`
}

type ProcessScheduledResponse struct {
	Success   bool   `json:"success"`
	Processed int    `json:"processed"`
	Message   string `json:"message,omitempty"`
}

type SendDownloadPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	UserID          string `json:"userId" validate:"required"`
	Password        string `json:"password" validate:"required"`
	SiteName        string `json:"siteName" validate:"required"`
	Slug            string `json:"slug"`
	IsSecurePackage bool   `json:"isSecurePackage"`
}

type APIInstance struct {
	ID              string         `json:"id"`
	WorkflowID      string         `json:"workflowId"`
	UserID          string         `json:"userId"`
	UserEmail       string         `json:"userEmail"`
	Status          string         `json:"status"`
	CurrentStep     int            `json:"currentStep"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	StartedAt       time.Time      `json:"startedAt"`
	LastEmailSentAt *time.Time     `json:"lastEmailSentAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
}

type APIScheduleEntry struct {
	ID           string     `json:"id"`
	StepIndex    int        `json:"stepIndex"`
	ScheduledFor time.Time  `json:"scheduledFor"`
	Status       string     `json:"status"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
}

type APIEmailLogEntry struct {
	StepID            string    `json:"stepId,omitempty"`
	Email             string    `json:"email"`
	Subject           string    `json:"subject"`
	Status            string    `json:"status"`
	Provider          string    `json:"provider,omitempty"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	ErrorMessage      string    `json:"errorMessage,omitempty"`
	SentAt            time.Time `json:"sentAt"`
}

type UserWorkflowsResponse struct {
	Instances []APIInstance `json:"instances"`
}

type APIInstanceDetail struct {
	Instance  APIInstance        `json:"instance"`
	Schedules []APIScheduleEntry `json:"schedules"`
	EmailLog  []APIEmailLogEntry `json:"emailLog"`
}
