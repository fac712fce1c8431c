// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"github.com/dalemusser/jobhub/internal/domain/notices"
)

// notice is a plain-text template; the HTML alternative is derived from the
// rendered text by wrapping paragraphs in the shared layout.
type notice struct {
	subject string
	body    string
}

var catalog = map[string]notice{
	notices.MemberAdded: {
		subject: "You have been added to {{.org_name}} on {{.site_name}}",
		body: `Hello {{.full_name}},

You have been added to the {{.org_name}} team on {{.site_name}}.

Sign in with:
Email: {{.email}}
Password: {{.password}}

Please change your password after signing in: {{.login_url}}`,
	},
	notices.MemberRemoved: {
		subject: "You have been removed from {{.org_name}}",
		body: `Hello {{.full_name}},

Your membership in the {{.org_name}} team on {{.site_name}} has ended.`,
	},
	notices.OwnershipGranted: {
		subject: "You are now the owner of {{.org_name}}",
		body: `Hello {{.full_name}},

You are now the owner of {{.org_name}} on {{.site_name}}. You can manage the team and approve join requests.`,
	},
	notices.OwnershipRevoked: {
		subject: "Ownership of {{.org_name}} has moved",
		body: `Hello {{.full_name}},

You are no longer the owner of {{.org_name}} on {{.site_name}}. You remain a member of the team.`,
	},
	notices.SignupSubmitted: {
		subject: "New employer signup: {{.org_name}}",
		body: `{{.full_name}} <{{.email}}> has requested an employer account for {{.org_name}}.

Review request {{.request_id}} at {{.base_url}}/requests/{{.request_id}}`,
	},
	notices.SignupApproved: {
		subject: "{{.org_name}} is approved on {{.site_name}}",
		body: `Hello {{.full_name}},

Your employer account for {{.org_name}} has been approved. You are the owner of the organization.

Sign in at {{.login_url}}`,
	},
	notices.SignupDeclined: {
		subject: "Your {{.site_name}} employer signup",
		body: `Hello {{.full_name}},

Your employer signup for {{.org_name}} was not approved.{{if .note}}

Reason: {{.note}}{{end}}`,
	},
	notices.SignupInfoRequested: {
		subject: "More information needed for {{.org_name}}",
		body: `Hello {{.full_name}},

Before we can approve {{.org_name}} we need a little more information:

{{.note}}

Reply through {{.base_url}}/requests/{{.request_id}}`,
	},
	notices.SignupInfoReceived: {
		subject: "Reply received for {{.org_name}}",
		body: `{{.full_name}} replied to request {{.request_id}}:

{{.note}}`,
	},
	notices.JoinSubmitted: {
		subject: "{{.full_name}} wants to join {{.org_name}}",
		body: `{{.full_name}} <{{.email}}>{{if .job_title}} ({{.job_title}}){{end}} has asked to join {{.org_name}}.

Review request {{.request_id}} at {{.base_url}}/requests/{{.request_id}}`,
	},
	notices.JoinApproved: {
		subject: "Welcome to {{.org_name}} on {{.site_name}}",
		body: `Hello {{.full_name}},

Your request to join {{.org_name}} has been approved.

Sign in with:
Email: {{.email}}
Password: {{.password}}

Please change your password after signing in: {{.login_url}}`,
	},
	notices.JoinDeclined: {
		subject: "Your request to join {{.org_name}}",
		body: `Hello {{.full_name}},

Your request to join {{.org_name}} was not approved.{{if .note}}

Reason: {{.note}}{{end}}`,
	},
	notices.RemovalSubmitted: {
		subject: "Removal requested: {{.full_name}} from {{.org_name}}",
		body: `{{.actor_name}} has asked to remove {{.full_name}} <{{.email}}> from {{.org_name}}.{{if .note}}

Reason: {{.note}}{{end}}

Review request {{.request_id}} at {{.base_url}}/requests/{{.request_id}}`,
	},
	notices.RemovalApproved: {
		subject: "{{.full_name}} has been removed from {{.org_name}}",
		body: `Your request to remove {{.full_name}} from {{.org_name}} has been approved and the account deleted.`,
	},
	notices.RemovalDeclined: {
		subject: "Removal of {{.full_name}} was not approved",
		body: `Your request to remove {{.full_name}} from {{.org_name}} was not approved. The member remains on the team.{{if .note}}

Reason: {{.note}}{{end}}`,
	},
}

// Known reports whether key names a template.
func Known(key string) bool {
	_, ok := catalog[key]
	return ok
}

// Render builds the Email for key with vars. site_name, base_url and
// login_url are filled from the mailer config when absent.
func (m *Mailer) Render(key, to string, vars map[string]string) (Email, error) {
	n, ok := catalog[key]
	if !ok {
		return Email{}, fmt.Errorf("mailer: unknown template %q", key)
	}

	data := make(map[string]string, len(vars)+3)
	for k, v := range vars {
		data[k] = v
	}
	if data["site_name"] == "" {
		data["site_name"] = m.cfg.SiteName
	}
	if data["base_url"] == "" {
		data["base_url"] = strings.TrimRight(m.cfg.BaseURL, "/")
	}
	if data["login_url"] == "" {
		data["login_url"] = data["base_url"] + "/login"
	}

	subject, err := execText(key+".subject", n.subject, data)
	if err != nil {
		return Email{}, err
	}
	text, err := execText(key+".body", n.body, data)
	if err != nil {
		return Email{}, err
	}
	html, err := wrapHTML(data["site_name"], text)
	if err != nil {
		return Email{}, err
	}
	return Email{To: to, Subject: subject, TextBody: text, HTMLBody: html}, nil
}

func execText(name, src string, data map[string]string) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type layoutData struct {
	SiteName   string
	Paragraphs [][]string
}

var layout = htmltemplate.Must(htmltemplate.New("layout").Parse(layoutHTML))

// wrapHTML splits text into paragraphs on blank lines and lines within a
// paragraph, and renders them through the escaping layout.
func wrapHTML(siteName, text string) (string, error) {
	var paras [][]string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paras = append(paras, strings.Split(p, "\n"))
	}
	var buf bytes.Buffer
	if err := layout.Execute(&buf, layoutData{SiteName: siteName, Paragraphs: paras}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const layoutHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.SiteName}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 520px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              {{- range .Paragraphs}}
              <p style="margin: 0 0 16px; font-size: 16px; color: #374151; line-height: 1.5;">
                {{- range $i, $line := .}}{{if $i}}<br>{{end}}{{$line}}{{end -}}
              </p>
              {{- end}}
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`
