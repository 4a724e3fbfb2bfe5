// Package codec translates between the two-field job form (kind + attribute
// name) and the single data-type token stored by the backend.
package codec

import (
	"regexp"
	"strings"

	"scrapedesk/pkg/api"
)

// Kind is the extraction target of a job.
type Kind int

const (
	KindText Kind = iota
	KindAttribute
)

func (k Kind) String() string {
	if k == KindAttribute {
		return "Attribute"
	}
	return "Text"
}

// TextToken is the wire token for text extraction.
const TextToken = "Text"

var attributeToken = regexp.MustCompile(`^Attribute\((.+)\)$`)

// DataType is a tagged variant: either Text or Attribute{name}.
// The zero value is Text.
type DataType struct {
	kind Kind
	name string
}

// Text returns the Text variant.
func Text() DataType { return DataType{kind: KindText} }

// Attribute returns the Attribute variant. An empty name collapses to Text.
func Attribute(name string) DataType {
	if name == "" {
		return Text()
	}
	return DataType{kind: KindAttribute, name: name}
}

// Kind reports which variant d holds.
func (d DataType) Kind() Kind { return d.kind }

// AttributeName returns the attribute name and whether d is an Attribute.
func (d DataType) AttributeName() (string, bool) {
	return d.name, d.kind == KindAttribute
}

// Token serializes d to its wire token.
func (d DataType) Token() string {
	if d.kind == KindAttribute {
		return "Attribute(" + d.name + ")"
	}
	return TextToken
}

func (d DataType) String() string { return d.Token() }

// ParseDataType deserializes a wire token. Anything that is not
// Attribute(<non-empty>) decodes to Text; this never fails.
func ParseDataType(token string) DataType {
	m := attributeToken.FindStringSubmatch(token)
	if m == nil {
		return Text()
	}
	return Attribute(m[1])
}

// ValidAttributeName reports whether name survives a round trip through the
// wire token. Names containing parentheses do not.
func ValidAttributeName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "()")
}

// Form is the job as edited by a user: the data type is split into Kind and
// AttributeName. AttributeName is empty unless Kind is KindAttribute.
type Form struct {
	ID            *int64
	Name          string `validate:"required"`
	URL           string `validate:"required,url"`
	SelectorType  string `validate:"required,oneof=CSS Regex"`
	Selector      string `validate:"required"`
	Kind          Kind
	AttributeName string `validate:"required_if=Kind 1,excludesall=()"`
	Schedule      string `validate:"required"`
	IsActive      bool
	UserAgent     string
	ProxyURL      string
}

// DataType returns the variant described by the form's two fields.
func (f Form) DataType() DataType {
	if f.Kind == KindAttribute {
		return Attribute(f.AttributeName)
	}
	return Text()
}

// ToWireForm collapses the form into the backend job shape.
func ToWireForm(f Form) api.Job {
	job := api.Job{
		ID:           f.ID,
		Name:         f.Name,
		URL:          f.URL,
		SelectorType: f.SelectorType,
		Selector:     f.Selector,
		DataType:     f.DataType().Token(),
		Schedule:     f.Schedule,
		IsActive:     f.IsActive,
	}
	if f.UserAgent != "" {
		ua := f.UserAgent
		job.UserAgent = &ua
	}
	if f.ProxyURL != "" {
		proxy := f.ProxyURL
		job.ProxyURL = &proxy
	}
	return job
}

// ToFormFields expands a backend job into the form shape.
func ToFormFields(job api.Job) Form {
	dt := ParseDataType(job.DataType)
	name, _ := dt.AttributeName()

	f := Form{
		ID:            job.ID,
		Name:          job.Name,
		URL:           job.URL,
		SelectorType:  job.SelectorType,
		Selector:      job.Selector,
		Kind:          dt.Kind(),
		AttributeName: name,
		Schedule:      job.Schedule,
		IsActive:      job.IsActive,
	}
	if job.UserAgent != nil {
		f.UserAgent = *job.UserAgent
	}
	if job.ProxyURL != nil {
		f.ProxyURL = *job.ProxyURL
	}
	return f
}

// NewForm returns an empty form with the defaults a new job starts from.
func NewForm() Form {
	return Form{
		SelectorType: api.SelectorCSS,
		Kind:         KindText,
		Schedule:     api.ScheduleDaily,
		IsActive:     true,
	}
}
