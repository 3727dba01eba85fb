package templates

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	texttmpl "text/template"
)

// Rendered holds the output of a template render ready for the mail client.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type emailTemplate struct {
	subject string
	text    string
	html    string
}

var registry = map[string]emailTemplate{
	"verify_email": {
		subject: "Xác thực tài khoản {{.Company}}",
		text: "Chào {{.Fullname}},\n\n" +
			"Mã xác thực tài khoản của bạn là: {{.Code}}\n" +
			"Hoặc bấm vào liên kết sau để xác thực: {{.VerifyURL}}\n\n" +
			"{{.Company}}",
		html: `<p>Chào <b>{{.Fullname}}</b>,</p>
<p>Mã xác thực tài khoản của bạn là: <b>{{.Code}}</b></p>
<p>Hoặc bấm vào <a href="{{.VerifyURL}}">liên kết này</a> để xác thực.</p>
<p>{{.Company}}</p>`,
	},
	"welcome": {
		subject: "Chào mừng đến với {{.Company}}",
		text: "Chào {{.Fullname}},\n\n" +
			"Tài khoản {{.Username}} của bạn đã sẵn sàng.\n\n" +
			"{{.Company}}",
		html: `<p>Chào <b>{{.Fullname}}</b>,</p>
<p>Tài khoản <b>{{.Username}}</b> của bạn đã sẵn sàng.</p>
<p>{{.Company}}</p>`,
	},
	"invitation": {
		subject: "Mã mời tham gia {{.Company}}",
		text: "Chào bạn,\n\n" +
			"{{.Inviter}} đã gửi cho bạn mã mời: {{.Code}}\n" +
			"Mã có hiệu lực đến {{.ExpiresAt}}.\n\n" +
			"{{.Company}}",
		html: `<p>Chào bạn,</p>
<p><b>{{.Inviter}}</b> đã gửi cho bạn mã mời: <b>{{.Code}}</b></p>
<p>Mã có hiệu lực đến {{.ExpiresAt}}.</p>
<p>{{.Company}}</p>`,
	},
	"payment_receipt": {
		subject: "Biên nhận thanh toán {{.TransactionID}}",
		text: "Chào {{.Fullname}},\n\n" +
			"Chúng tôi đã nhận thanh toán {{.Amount}} VND cho gói {{.Package}}.\n" +
			"Mã giao dịch: {{.TransactionID}}\n\n" +
			"{{.Company}}",
		html: `<p>Chào <b>{{.Fullname}}</b>,</p>
<p>Chúng tôi đã nhận thanh toán <b>{{.Amount}} VND</b> cho gói <b>{{.Package}}</b>.</p>
<p>Mã giao dịch: {{.TransactionID}}</p>
<p>{{.Company}}</p>`,
	},
	"package_activated": {
		subject: "Gói {{.Package}} đã được kích hoạt",
		text: "Chào {{.Fullname}},\n\n" +
			"Gói {{.Package}} của bạn đã được kích hoạt và có hiệu lực đến {{.EndDate}}.\n\n" +
			"{{.Company}}",
		html: `<p>Chào <b>{{.Fullname}}</b>,</p>
<p>Gói <b>{{.Package}}</b> của bạn đã được kích hoạt và có hiệu lực đến {{.EndDate}}.</p>
<p>{{.Company}}</p>`,
	},
}

// Render executes the named template with data and returns subject, plain
// text and HTML bodies. Unknown template names are an error so the worker
// can dead-letter the job instead of sending an empty mail.
func Render(name string, data map[string]any) (Rendered, error) {
	tpl, ok := registry[name]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown email template %q", name)
	}
	subject, err := renderText(name+":subject", tpl.subject, data)
	if err != nil {
		return Rendered{}, err
	}
	text, err := renderText(name+":text", tpl.text, data)
	if err != nil {
		return Rendered{}, err
	}
	html, err := renderHTML(name+":html", tpl.html, data)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Subject: subject, Text: text, HTML: html}, nil
}

func renderText(name, body string, data map[string]any) (string, error) {
	t, err := texttmpl.New(name).Option("missingkey=zero").Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(name, body string, data map[string]any) (string, error) {
	t, err := htmltmpl.New(name).Option("missingkey=zero").Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
