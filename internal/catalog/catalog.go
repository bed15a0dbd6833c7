package catalog

import (
	"fmt"
)

// Trigger is the application event category that may start a workflow.
type Trigger string

const (
	TriggerUserSignup            Trigger = "user_signup"
	TriggerPrelanderCreated      Trigger = "prelander_created"
	TriggerPrelanderDownloaded   Trigger = "prelander_downloaded"
	TriggerPrelanderHosted       Trigger = "prelander_hosted"
	TriggerTrialExpiring         Trigger = "trial_expiring"
	TriggerSubscriptionCancelled Trigger = "subscription_cancelled"
	TriggerManual                Trigger = "manual"
)

// Condition decides whether a step should be sent for the given instance
// metadata. A nil Condition always sends.
type Condition func(data map[string]any) bool

// StepDefinition is one email in a workflow: template plus subject plus the
// delay measured from completion of the previous step.
type StepDefinition struct {
	ID          string
	Name        string
	Subject     string
	TemplateKey string
	DelayHours  int
	Condition   Condition
}

type WorkflowDefinition struct {
	ID      string
	Name    string
	Trigger Trigger
	Enabled bool
	Steps   []StepDefinition
}

// Catalog is the immutable registry of workflow definitions, built once at
// startup. Changing workflows means redeploying; there is no mutation API.
type Catalog struct {
	byID  map[string]*WorkflowDefinition
	order []string
}

func New(defs []WorkflowDefinition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*WorkflowDefinition, len(defs))}
	for i := range defs {
		def := defs[i]
		if def.ID == "" {
			return nil, fmt.Errorf("workflow definition at index %d has no id", i)
		}
		if _, exists := c.byID[def.ID]; exists {
			return nil, fmt.Errorf("duplicate workflow definition %q", def.ID)
		}
		if len(def.Steps) == 0 {
			return nil, fmt.Errorf("workflow %q has no steps", def.ID)
		}
		for j, step := range def.Steps {
			if step.DelayHours < 0 {
				return nil, fmt.Errorf("workflow %q step %d has negative delay", def.ID, j)
			}
			if step.TemplateKey == "" {
				return nil, fmt.Errorf("workflow %q step %d has no template key", def.ID, j)
			}
		}
		c.byID[def.ID] = &def
		c.order = append(c.order, def.ID)
	}
	return c, nil
}

func (c *Catalog) Get(id string) (*WorkflowDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// ByTrigger returns enabled workflows started by the given trigger, in
// catalog order.
func (c *Catalog) ByTrigger(t Trigger) []*WorkflowDefinition {
	var out []*WorkflowDefinition
	for _, id := range c.order {
		def := c.byID[id]
		if def.Enabled && def.Trigger == t {
			out = append(out, def)
		}
	}
	return out
}

func (c *Catalog) All() []*WorkflowDefinition {
	out := make([]*WorkflowDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Validate checks every template key referenced by a step against the
// renderer registry, turning a runtime "template not found" into a startup
// failure.
func (c *Catalog) Validate(hasTemplate func(key string) bool) error {
	for _, id := range c.order {
		for _, step := range c.byID[id].Steps {
			if !hasTemplate(step.TemplateKey) {
				return fmt.Errorf("workflow %q step %q references unknown template %q", id, step.ID, step.TemplateKey)
			}
		}
	}
	return nil
}
