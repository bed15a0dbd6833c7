package catalog

// BuiltIn returns the product's lifecycle email sequences. Delays are hours
// after the previous step, not after the workflow start.
func BuiltIn() []WorkflowDefinition {
	return []WorkflowDefinition{
		{
			ID:      "onboarding",
			Name:    "User Onboarding Sequence",
			Trigger: TriggerUserSignup,
			Enabled: true,
			Steps: []StepDefinition{
				{
					ID:          "welcome",
					Name:        "Welcome Email",
					Subject:     "Welcome to PrelanderAI!",
					TemplateKey: "welcome",
					DelayHours:  0,
				},
				{
					ID:          "getting_started",
					Name:        "Getting Started Guide",
					Subject:     "Create Your First Prelander",
					TemplateKey: "getting_started",
					DelayHours:  24,
				},
				{
					ID:          "tips_tricks",
					Name:        "Tips & Best Practices",
					Subject:     "Pro Tips for Better Prelanders",
					TemplateKey: "tips_tricks",
					DelayHours:  72,
				},
				{
					ID:          "upgrade_prompt",
					Name:        "Upgrade Benefits",
					Subject:     "Unlock Premium Features",
					TemplateKey: "upgrade_prompt",
					DelayHours:  120,
					// Users who already purchased get no upsell.
					Condition: func(data map[string]any) bool {
						purchased, _ := data["hasPurchased"].(bool)
						return !purchased
					},
				},
			},
		},
		{
			ID:      "prelander_created",
			Name:    "Prelander Creation Follow-up",
			Trigger: TriggerPrelanderCreated,
			Enabled: true,
			Steps: []StepDefinition{
				{
					ID:          "creation_success",
					Name:        "Creation Confirmation",
					Subject:     "Your Prelander is Ready!",
					TemplateKey: "prelander_created",
					DelayHours:  0,
				},
				{
					ID:          "optimization_tips",
					Name:        "Optimization Tips",
					Subject:     "Optimize Your Prelander Performance",
					TemplateKey: "optimization_tips",
					DelayHours:  48,
				},
			},
		},
		{
			ID:      "download_workflow",
			Name:    "Download & Hosting Guide",
			Trigger: TriggerPrelanderDownloaded,
			Enabled: true,
			Steps: []StepDefinition{
				{
					ID:          "download_password",
					Name:        "Download Password",
					Subject:     "Your Secure Download Password",
					TemplateKey: "download_password",
					DelayHours:  0,
				},
				{
					ID:          "hosting_help",
					Name:        "Hosting Assistance",
					Subject:     "Need Help with Hosting?",
					TemplateKey: "hosting_help",
					DelayHours:  24,
				},
			},
		},
		{
			ID:      "hosting_workflow",
			Name:    "Hosted Prelander Follow-up",
			Trigger: TriggerPrelanderHosted,
			Enabled: true,
			Steps: []StepDefinition{
				{
					ID:          "hosting_success",
					Name:        "Hosting Confirmation",
					Subject:     "Your Prelander is Live!",
					TemplateKey: "hosting_success",
					DelayHours:  0,
				},
				{
					ID:          "performance_check",
					Name:        "Performance Check-in",
					Subject:     "How is Your Prelander Performing?",
					TemplateKey: "performance_check",
					DelayHours:  168,
				},
			},
		},
		{
			ID:      "trial_expiring",
			Name:    "Trial Expiration Reminders",
			Trigger: TriggerTrialExpiring,
			Enabled: true,
			Steps: []StepDefinition{
				{
					ID:          "trial_7days",
					Name:        "7 Days Before Expiration",
					Subject:     "Your Trial Expires in 7 Days",
					TemplateKey: "trial_7days",
					DelayHours:  0,
				},
				{
					ID:          "trial_3days",
					Name:        "3 Days Before Expiration",
					Subject:     "Only 3 Days Left in Your Trial",
					TemplateKey: "trial_3days",
					DelayHours:  96,
				},
				{
					ID:          "trial_1day",
					Name:        "1 Day Before Expiration",
					Subject:     "Last Day of Your Trial!",
					TemplateKey: "trial_1day",
					DelayHours:  48,
				},
			},
		},
	}
}
