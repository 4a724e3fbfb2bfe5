package codec

import (
	"testing"

	"scrapedesk/pkg/api"
)

func TestDataType_Token(t *testing.T) {
	tests := []struct {
		name string
		dt   DataType
		want string
	}{
		{"zero value is text", DataType{}, "Text"},
		{"text", Text(), "Text"},
		{"attribute", Attribute("href"), "Attribute(href)"},
		{"attribute with dashes", Attribute("data-id"), "Attribute(data-id)"},
		{"empty attribute collapses", Attribute(""), "Text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dt.Token(); got != tt.want {
				t.Errorf("Token() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDataType(t *testing.T) {
	tests := []struct {
		token    string
		wantKind Kind
		wantName string
	}{
		{"Text", KindText, ""},
		{"Attribute(href)", KindAttribute, "href"},
		{"Attribute(src)", KindAttribute, "src"},
		{"Attribute()", KindText, ""},
		{"attribute(href)", KindText, ""},
		{"Html", KindText, ""},
		{"", KindText, ""},
		{"Attribute(href", KindText, ""},
		{"xAttribute(href)", KindText, ""},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			dt := ParseDataType(tt.token)
			if dt.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", dt.Kind(), tt.wantKind)
			}
			name, ok := dt.AttributeName()
			if name != tt.wantName {
				t.Errorf("AttributeName() = %q, want %q", name, tt.wantName)
			}
			if ok != (tt.wantKind == KindAttribute) {
				t.Errorf("AttributeName() ok = %v for kind %v", ok, tt.wantKind)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	names := []string{"href", "src", "data-value", "aria label", "x", "title_1", "ñ"}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			in := NewForm()
			in.Kind = KindAttribute
			in.AttributeName = name

			out := ToFormFields(ToWireForm(in))
			if out.Kind != KindAttribute || out.AttributeName != name {
				t.Errorf("round trip = (%v, %q), want (Attribute, %q)", out.Kind, out.AttributeName, name)
			}
		})
	}
}

func TestToWireForm(t *testing.T) {
	ua := "bot/1.0"
	f := Form{
		Name:          "links",
		URL:           "https://example.com",
		SelectorType:  api.SelectorCSS,
		Selector:      "a",
		Kind:          KindAttribute,
		AttributeName: "href",
		Schedule:      "daily",
		IsActive:      true,
		UserAgent:     ua,
	}

	job := ToWireForm(f)
	if job.DataType != "Attribute(href)" {
		t.Errorf("DataType = %q, want Attribute(href)", job.DataType)
	}
	if job.UserAgent == nil || *job.UserAgent != ua {
		t.Errorf("UserAgent = %v, want %q", job.UserAgent, ua)
	}
	if job.ProxyURL != nil {
		t.Errorf("ProxyURL = %v, want nil", *job.ProxyURL)
	}
	if job.ID != nil {
		t.Error("ID should be absent for a new job")
	}

	f.AttributeName = ""
	if got := ToWireForm(f).DataType; got != "Text" {
		t.Errorf("attribute kind without name: DataType = %q, want Text", got)
	}

	f.Kind = KindText
	f.AttributeName = "href"
	if got := ToWireForm(f).DataType; got != "Text" {
		t.Errorf("text kind: DataType = %q, want Text", got)
	}
}

func TestToFormFields_UnknownTokenIsText(t *testing.T) {
	id := int64(7)
	job := api.Job{ID: &id, Name: "n", DataType: "Markdown"}

	f := ToFormFields(job)
	if f.Kind != KindText {
		t.Errorf("Kind = %v, want Text", f.Kind)
	}
	if f.AttributeName != "" {
		t.Errorf("AttributeName = %q, want empty", f.AttributeName)
	}
	if f.ID == nil || *f.ID != 7 {
		t.Errorf("ID not carried over: %v", f.ID)
	}
}

func TestValidAttributeName(t *testing.T) {
	tests := map[string]bool{
		"href":    true,
		"data-id": true,
		"":        false,
		"f(x)":    false,
		"a)":      false,
	}
	for name, want := range tests {
		if got := ValidAttributeName(name); got != want {
			t.Errorf("ValidAttributeName(%q) = %v, want %v", name, got, want)
		}
	}
}
