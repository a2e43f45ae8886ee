package usecase

import "github.com/shandysiswandi/credbite/internal/notification/entity"

const footer = `
<p>If you did not expect this e-mail you can ignore it.</p>
<p>{{.company_name}} &middot; {{.support_email}} &middot; {{.year}}</p>`

var templates = map[entity.TriggerKey]entity.Template{
	entity.TriggerKeyEmailVerifyCode: {
		TriggerKey: entity.TriggerKeyEmailVerifyCode,
		Subject:    "Your verification code",
		Body: `<p>Hi {{.full_name}},</p>
<p>Your verification code is <strong>{{.code}}</strong>. It expires at {{.expires_at}}.</p>` + footer,
	},
	entity.TriggerKeyMFACode: {
		TriggerKey: entity.TriggerKeyMFACode,
		Subject:    "Your sign-in code",
		Body: `<p>Hi {{.full_name}},</p>
<p>Use <strong>{{.code}}</strong> to finish signing in. It expires at {{.expires_at}}.</p>` + footer,
	},
	entity.TriggerKeyEmailVerifyLink: {
		TriggerKey: entity.TriggerKeyEmailVerifyLink,
		Subject:    "Verify your e-mail address",
		Body: `<p>Hi {{.full_name}},</p>
<p><a href="{{.verify_url}}">Verify your e-mail address</a>. The link expires at {{.expires_at}}.</p>` + footer,
	},
	entity.TriggerKeyPasswordReset: {
		TriggerKey: entity.TriggerKeyPasswordReset,
		Subject:    "Reset your password",
		Body: `<p>Hi {{.full_name}},</p>
<p><a href="{{.reset_url}}">Choose a new password</a>. The link expires at {{.expires_at}}.</p>` + footer,
	},
	entity.TriggerKeyGuestAccess: {
		TriggerKey: entity.TriggerKeyGuestAccess,
		Subject:    "You have been invited to a {{.resource}}",
		Body: `<p>Hi {{.recipient_name}},</p>
<p>{{.owner_email}} gave you {{.access}} access to a {{.resource}}.</p>
<p><a href="{{.access_url}}">Open it</a> or use the code <strong>{{.code}}</strong> before {{.expires_at}}.</p>` + footer,
	},
	entity.TriggerKeyShareAccess: {
		TriggerKey: entity.TriggerKeyShareAccess,
		Subject:    "A {{.resource}} was shared with you",
		Body: `<p>Hi {{.recipient_name}},</p>
<p>{{.owner_email}} shared a {{.resource}} with you ({{.access}}).</p>
<p><a href="{{.access_url}}">Open it</a> or use the code <strong>{{.code}}</strong> before {{.expires_at}}.</p>` + footer,
	},
}
