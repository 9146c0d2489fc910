package domain

// AttributeScope identifies which of the four mutually exclusive storage
// partitions an attribute's value lives in. UnoPIM stores every product value
// in exactly one of them, determined solely by the attribute's two
// per-locale/per-channel flags.
type AttributeScope string

const (
	ScopeGlobal        AttributeScope = "common"
	ScopeLocale        AttributeScope = "locale_specific"
	ScopeChannel       AttributeScope = "channel_specific"
	ScopeChannelLocale AttributeScope = "channel_locale_specific"
)

// ScopeFor maps the two storage flags onto exactly one scope. There is no
// fifth combination.
func ScopeFor(perLocale, perChannel bool) AttributeScope {
	switch {
	case perLocale && perChannel:
		return ScopeChannelLocale
	case perLocale:
		return ScopeLocale
	case perChannel:
		return ScopeChannel
	default:
		return ScopeGlobal
	}
}

// AttributeMetadata is the read-only snapshot of a single attribute's schema
// as served by the backend. It is fetched per resolution operation and never
// cached across operations.
type AttributeMetadata struct {
	// Code is the unique attribute identifier within the catalog.
	Code string `json:"code"`

	// Type is the backend value type, e.g. "text", "textarea", "boolean",
	// "select", "multiselect", "price", "date", "image", "file".
	Type string `json:"type"`

	// IsRequired marks attributes a product of the family must carry.
	IsRequired bool `json:"is_required"`

	// ValuePerLocale and ValuePerChannel together determine the scope.
	ValuePerLocale  bool `json:"value_per_locale"`
	ValuePerChannel bool `json:"value_per_channel"`

	// ValidationRule is an optional backend-side validation hint
	// (e.g. "email", "url", "decimal"). Advisory here; the backend enforces it.
	ValidationRule string `json:"validation,omitempty"`
}

// Scope returns the storage partition this attribute's values belong to.
func (m AttributeMetadata) Scope() AttributeScope {
	return ScopeFor(m.ValuePerLocale, m.ValuePerChannel)
}

// FamilyAttributeInfo aggregates the attribute schema of one product family,
// partitioned by scope. The four scope slices are disjoint and together cover
// every entry of Attributes exactly once.
type FamilyAttributeInfo struct {
	FamilyCode string

	// Attributes holds the resolved metadata keyed by attribute code.
	Attributes map[string]AttributeMetadata

	// Scope partition, attribute codes only.
	Common                []string
	LocaleSpecific        []string
	ChannelSpecific       []string
	ChannelLocaleSpecific []string

	// Required lists the codes with IsRequired set.
	Required []string

	// Unresolved lists attribute codes that appear in the family's groups but
	// whose metadata could not be fetched. Callers decide whether partial
	// schema data is acceptable.
	Unresolved []string
}

// NewFamilyAttributeInfo builds the partitioned aggregate from resolved
// metadata. Unresolved codes are carried through verbatim.
func NewFamilyAttributeInfo(familyCode string, attributes []AttributeMetadata, unresolved []string) *FamilyAttributeInfo {
	info := &FamilyAttributeInfo{
		FamilyCode: familyCode,
		Attributes: make(map[string]AttributeMetadata, len(attributes)),
		Unresolved: unresolved,
	}
	for _, attr := range attributes {
		info.Attributes[attr.Code] = attr
		switch attr.Scope() {
		case ScopeLocale:
			info.LocaleSpecific = append(info.LocaleSpecific, attr.Code)
		case ScopeChannel:
			info.ChannelSpecific = append(info.ChannelSpecific, attr.Code)
		case ScopeChannelLocale:
			info.ChannelLocaleSpecific = append(info.ChannelLocaleSpecific, attr.Code)
		default:
			info.Common = append(info.Common, attr.Code)
		}
		if attr.IsRequired {
			info.Required = append(info.Required, attr.Code)
		}
	}
	return info
}

// Lookup returns the metadata for code, reporting whether it is known.
func (f *FamilyAttributeInfo) Lookup(code string) (AttributeMetadata, bool) {
	m, ok := f.Attributes[code]
	return m, ok
}
