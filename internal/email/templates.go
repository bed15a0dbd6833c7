package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
)

var ErrTemplateNotFound = errors.New("email template not found")

// RenderFunc produces the HTML and plain-text bodies for one template key.
type RenderFunc func(data map[string]any) (html string, text string, err error)

// Templates is the explicit template registry, keyed by the template keys the
// workflow catalog references. Built once at startup and validated against
// the catalog so a missing template is a boot failure, not a runtime one.
type Templates struct {
	appURL string
	funcs  map[string]RenderFunc
}

const layoutHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <style>
    body { margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #f5f5f5; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 40px; text-align: center; }
    .content { padding: 40px; }
    .footer { background-color: #f8f9fa; padding: 30px; text-align: center; color: #666666; font-size: 14px; }
    .button { display: inline-block; background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white !important; padding: 15px 40px; text-decoration: none; border-radius: 50px; font-weight: 600; margin: 20px 0; }
    .highlight-box { background-color: #f0f9ff; border-left: 4px solid #667eea; padding: 20px; margin: 20px 0; }
    .password { font-size: 24px; font-weight: bold; color: #667eea; letter-spacing: 2px; font-family: 'Courier New', monospace; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">{{.Header}}</div>
    <div class="content">{{.Content}}</div>
    <div class="footer">
      <p style="margin: 0 0 10px 0;"><strong>PrelanderAI</strong></p>
      <p style="margin: 0; font-size: 12px; color: #999;">&copy; 2025 PrelanderAI. All rights reserved.</p>
    </div>
  </div>
</body>
</html>
`

var layoutTmpl = template.Must(template.New("layout").Parse(layoutHTML))

func NewTemplates(appURL string) *Templates {
	t := &Templates{appURL: appURL}
	t.funcs = map[string]RenderFunc{
		"welcome":           t.welcome,
		"getting_started":   t.gettingStarted,
		"tips_tricks":       t.tipsTricks,
		"upgrade_prompt":    t.upgradePrompt,
		"prelander_created": t.prelanderCreated,
		"optimization_tips": t.optimizationTips,
		"download_password": t.downloadPassword,
		"hosting_help":      t.hostingHelp,
		"hosting_success":   t.hostingSuccess,
		"performance_check": t.performanceCheck,
		"trial_7days":       t.trial7Days,
		"trial_3days":       t.trial3Days,
		"trial_1day":        t.trial1Day,
	}
	return t
}

func (t *Templates) Has(key string) bool {
	_, ok := t.funcs[key]
	return ok
}

func (t *Templates) Render(key string, data map[string]any) (string, string, error) {
	fn, ok := t.funcs[key]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
	}
	return fn(data)
}

// page wraps pre-built header/content markup in the shared layout. The
// fragments passed in are trusted; user-supplied values must already be
// escaped via esc.
func (t *Templates) page(header, content string) (string, error) {
	var buf bytes.Buffer
	err := layoutTmpl.Execute(&buf, map[string]any{
		"Header":  template.HTML(header),
		"Content": template.HTML(content),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func esc(s string) string { return template.HTMLEscapeString(s) }

func str(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	v, _ := data[key].(string)
	return v
}

func (t *Templates) welcome(data map[string]any) (string, string, error) {
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 32px;">Welcome to PrelanderAI!</h1>
     <p style="margin: 10px 0 0 0; font-size: 18px; opacity: 0.9;">Your Journey Starts Here</p>`,
		`<p>Hey there!</p>
     <p>We're thrilled to have you on board. PrelanderAI is your secret weapon for creating stunning, high-converting prelanders in minutes.</p>
     <div class="highlight-box">
       <h3 style="margin: 0 0 15px 0; color: #667eea;">What You Can Do:</h3>
       <ul style="line-height: 1.8;">
         <li>Create beautiful prelanders with AI assistance</li>
         <li>Choose from professional templates</li>
         <li>Protect your pages with advanced security</li>
         <li>Host directly on AWS or download</li>
       </ul>
     </div>
     <div style="text-align: center;"><a href="`+t.appURL+`" class="button">Create Your First Prelander</a></div>
     <p>Cheers,<br><strong>The PrelanderAI Team</strong></p>`)
	text := "Welcome to PrelanderAI!\n\nWe're thrilled to have you on board.\n\nGet started: " + t.appURL + "\n\nCheers,\nThe PrelanderAI Team"
	return html, text, err
}

func (t *Templates) gettingStarted(data map[string]any) (string, string, error) {
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">Create Your First Prelander</h1>`,
		`<p>Ready to create something amazing?</p>
     <div class="highlight-box">
       <h3 style="color: #667eea;">Quick Start:</h3>
       <ol style="line-height: 2;">
         <li><strong>Choose Your Template</strong></li>
         <li><strong>Customize Your Content</strong></li>
         <li><strong>Add Security Features</strong></li>
         <li><strong>Deploy or Download</strong></li>
       </ol>
     </div>
     <div style="text-align: center;"><a href="`+t.appURL+`/dashboard" class="button">Start Creating Now</a></div>`)
	text := "Create Your First Prelander\n\nQuick Start Guide:\n1. Choose Template\n2. Customize Content\n3. Add Security\n4. Deploy/Download\n\n" + t.appURL + "/dashboard"
	return html, text, err
}

func (t *Templates) tipsTricks(data map[string]any) (string, string, error) {
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">Pro Tips for Better Prelanders</h1>`,
		`<p>Want to take your prelanders to the next level?</p>
     <div class="highlight-box">
       <h4 style="margin: 0 0 10px 0;">Clear Value Proposition</h4>
       <p style="margin: 0;">Make it crystal clear what you're offering in the first 3 seconds.</p>
     </div>
     <div class="highlight-box">
       <h4 style="margin: 0 0 10px 0;">Enable Security Features</h4>
       <p style="margin: 0;">Protect your work with code obfuscation and domain locking.</p>
     </div>
     <div class="highlight-box">
       <h4 style="margin: 0 0 10px 0;">Fast Loading is Key</h4>
       <p style="margin: 0;">Use AWS hosting for lightning-fast delivery.</p>
     </div>
     <div style="text-align: center;"><a href="`+t.appURL+`/dashboard" class="button">Apply These Tips</a></div>`)
	text := "Pro Tips:\n- Clear value proposition\n- Security features\n- Fast loading\n\n" + t.appURL + "/dashboard"
	return html, text, err
}

func (t *Templates) upgradePrompt(data map[string]any) (string, string, error) {
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">Unlock Premium Features</h1>`,
		`<p>Ready to unlock even more power?</p>
     <div class="highlight-box">
       <h3 style="color: #667eea;">Premium Features:</h3>
       <ul style="line-height: 2;">
         <li>Unlimited Prelanders</li>
         <li>Advanced Security</li>
         <li>Premium Templates</li>
         <li>Priority Support</li>
       </ul>
     </div>
     <div style="text-align: center;"><a href="`+t.appURL+`/pricing" class="button">Upgrade to Premium</a></div>
     <p style="text-align: center;">Use code <strong>WELCOME20</strong> for 20% off!</p>`)
	text := "Unlock Premium Features\n\nUnlimited prelanders, advanced security, premium templates, priority support.\n\nUse code WELCOME20 for 20% off!\n\n" + t.appURL + "/pricing"
	return html, text, err
}

func (t *Templates) prelanderCreated(data map[string]any) (string, string, error) {
	name := str(data, "siteName")
	if name == "" {
		name = "your prelander"
	}
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">Your Prelander is Ready!</h1>`,
		`<p>Great work! <strong>`+esc(name)+`</strong> has been created and is ready to go.</p>
     <div class="highlight-box">
       <h3 style="color: #667eea;">Next Steps:</h3>
       <ul style="line-height: 2;">
         <li>Preview and fine-tune your page</li>
         <li>Enable protection before publishing</li>
         <li>Download or host it live</li>
       </ul>
     </div>
     <div style="text-align: center;"><a href="`+t.appURL+`/dashboard" class="button">Open Dashboard</a></div>`)
	text := "Your prelander " + name + " has been created.\n\nNext: preview, protect, publish.\n\n" + t.appURL + "/dashboard"
	return html, text, err
}

func (t *Templates) optimizationTips(data map[string]any) (string, string, error) {
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">Optimize Your Prelander Performance</h1>`,
		`<p>Your prelander has been live for a couple of days. A few quick wins:</p>
     <div class="highlight-box">
       <ul style="line-height: 2;">
         <li>Test different headlines and calls to action</li>
         <li>Keep the win flow under 30 seconds</li>
         <li>Track conversions on the redirect target</li>
       </ul>
     </div>
     <div style="text-align: center;"><a href="`+t.appURL+`/dashboard" class="button">Review Your Pages</a></div>`)
	text := "Optimization tips: test headlines, keep the flow short, track conversions.\n\n" + t.appURL + "/dashboard"
	return html, text, err
}

func (t *Templates) downloadPassword(data map[string]any) (string, string, error) {
	password := str(data, "password")
	siteName := str(data, "siteName")
	slug := str(data, "slug")
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">Your Download Password</h1>
     <p style="margin: 10px 0 0 0;">Secure Access to Your Landing Page</p>`,
		`<p>Hello,</p>
     <p>You've requested to download your <strong>`+esc(siteName)+`</strong> landing page. For security, your files are protected in an encrypted ZIP archive.</p>
     <div class="highlight-box" style="text-align: center;">
       <p style="margin: 0 0 10px 0; color: #6b7280; font-size: 14px;">Your ZIP Encryption Password:</p>
       <div class="password">`+esc(password)+`</div>
     </div>
     <p><strong>Important:</strong></p>
     <ul style="line-height: 1.8;">
       <li>This password expires in <strong>24 hours</strong></li>
       <li>Keep this password secure and do not share it</li>
       <li>If you didn't request this download, contact support immediately</li>
     </ul>
     <p style="margin-top: 30px;"><strong>Site Slug:</strong> `+esc(slug)+`</p>`)
	text := "Your download password for " + siteName + ": " + password + "\n\nThis password expires in 24 hours. Site slug: " + slug
	return html, text, err
}

func (t *Templates) hostingHelp(data map[string]any) (string, string, error) {
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">Need Help with Hosting?</h1>`,
		`<p>You downloaded your prelander yesterday. Getting it online is easy:</p>
     <div class="highlight-box">
       <ol style="line-height: 2;">
         <li>Extract the ZIP with your download password</li>
         <li>Upload the files to any web host</li>
         <li>Or let us host it for you on AWS, one click</li>
       </ol>
     </div>
     <div style="text-align: center;"><a href="`+t.appURL+`/dashboard" class="button">Host It For Me</a></div>`)
	text := "Need help hosting? Extract the ZIP, upload to any host, or use one-click AWS hosting.\n\n" + t.appURL + "/dashboard"
	return html, text, err
}

func (t *Templates) hostingSuccess(data map[string]any) (string, string, error) {
	url := str(data, "hostedUrl")
	extra := ""
	textExtra := ""
	if url != "" {
		extra = `<p style="text-align: center;"><a href="` + esc(url) + `">` + esc(url) + `</a></p>`
		textExtra = "\n\nLive at: " + url
	}
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">Your Prelander is Live!</h1>`,
		`<p>Congratulations, your prelander is now hosted and serving visitors.</p>`+extra+`
     <div class="highlight-box">
       <ul style="line-height: 2;">
         <li>Served over HTTPS with global caching</li>
         <li>Protection features active</li>
       </ul>
     </div>
     <div style="text-align: center;"><a href="`+t.appURL+`/dashboard" class="button">View Your Sites</a></div>`)
	text := "Your prelander is live!" + textExtra + "\n\n" + t.appURL + "/dashboard"
	return html, text, err
}

func (t *Templates) performanceCheck(data map[string]any) (string, string, error) {
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">How is Your Prelander Performing?</h1>`,
		`<p>Your prelander has been live for a week. Now is a good time to check the numbers and iterate.</p>
     <div class="highlight-box">
       <ul style="line-height: 2;">
         <li>Compare click-through against your other pages</li>
         <li>Try a second template variant</li>
         <li>Refresh the copy if engagement is dropping</li>
       </ul>
     </div>
     <div style="text-align: center;"><a href="`+t.appURL+`/dashboard" class="button">Check Performance</a></div>`)
	text := "Your prelander has been live for a week. Check the numbers and iterate.\n\n" + t.appURL + "/dashboard"
	return html, text, err
}

func (t *Templates) trial7Days(data map[string]any) (string, string, error) {
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">Your Trial Expires in 7 Days</h1>`,
		`<p>Just a heads up, your PrelanderAI trial ends in one week.</p>
     <p>Upgrade now to keep your prelanders online and your editor access uninterrupted.</p>
     <div style="text-align: center;"><a href="`+t.appURL+`/pricing" class="button">See Plans</a></div>`)
	text := "Your trial ends in 7 days. Upgrade to keep your prelanders online.\n\n" + t.appURL + "/pricing"
	return html, text, err
}

func (t *Templates) trial3Days(data map[string]any) (string, string, error) {
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">Only 3 Days Left in Your Trial</h1>`,
		`<p>Your trial is almost over. After it ends, hosted prelanders are paused and downloads are disabled.</p>
     <div style="text-align: center;"><a href="`+t.appURL+`/pricing" class="button">Upgrade Now</a></div>`)
	text := "Only 3 days left in your trial. Upgrade to avoid interruption.\n\n" + t.appURL + "/pricing"
	return html, text, err
}

func (t *Templates) trial1Day(data map[string]any) (string, string, error) {
	html, err := t.page(
		`<h1 style="margin: 0; font-size: 28px;">Last Day of Your Trial!</h1>`,
		`<p>This is it, your trial ends today. Upgrade in the next 24 hours and everything stays exactly as you left it.</p>
     <div style="text-align: center;"><a href="`+t.appURL+`/pricing" class="button">Keep My Account</a></div>`)
	text := "Your trial ends today. Upgrade within 24 hours to keep everything as-is.\n\n" + t.appURL + "/pricing"
	return html, text, err
}
