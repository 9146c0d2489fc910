package domain

import (
	"fmt"
	"sort"
)

// Reserved keys that pass through a value set without scope routing. They are
// product-level concepts, not family attributes.
const (
	KeyCategories   = "categories"
	KeyAssociations = "associations"

	// KeySKU is the product identifier. The backend requires it in the common
	// bag no matter how the attribute itself is flagged.
	KeySKU = "sku"
)

// ScopedValueTree mirrors the nested "values" payload the backend stores:
// one bag per storage scope, plus the unscoped pass-through keys. A tree is
// built fresh per structuring call and treated as immutable once returned.
type ScopedValueTree struct {
	Common                map[string]any                       `json:"common,omitempty"`
	LocaleSpecific        map[string]map[string]any            `json:"locale_specific,omitempty"`
	ChannelSpecific       map[string]map[string]any            `json:"channel_specific,omitempty"`
	ChannelLocaleSpecific map[string]map[string]map[string]any `json:"channel_locale_specific,omitempty"`

	Categories   any `json:"categories,omitempty"`
	Associations any `json:"associations,omitempty"`
}

// ValidationIssue names one field-level finding.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is a pure value: errors block, warnings are advisory.
// It is returned, never raised through an error channel.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

func (r *ValidationResult) addError(field, message string) {
	r.Errors = append(r.Errors, ValidationIssue{Field: field, Message: message})
	r.Valid = false
}

func (r *ValidationResult) addWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{Field: field, Message: message})
}

// StructureValues routes a flat attribute-value map into the scoped tree for
// the given locale and channel.
//
// Routing rules:
//   - "categories" and "associations" pass through unscoped.
//   - "sku" always lands in the common bag, whatever its own classification.
//   - Known attributes go to the bag their (per-locale, per-channel) flags
//     dictate.
//   - Unknown codes default to the common bag; the backend's own validation
//     is the final authority on unknown-field rejection.
func StructureValues(flat map[string]any, info *FamilyAttributeInfo, locale, channel string) ScopedValueTree {
	tree := ScopedValueTree{}

	for code, value := range flat {
		switch code {
		case KeyCategories:
			tree.Categories = value
			continue
		case KeyAssociations:
			tree.Associations = value
			continue
		case KeySKU:
			tree.putCommon(code, value)
			continue
		}

		meta, known := info.Lookup(code)
		if !known {
			tree.putCommon(code, value)
			continue
		}
		switch meta.Scope() {
		case ScopeLocale:
			tree.putLocale(locale, code, value)
		case ScopeChannel:
			tree.putChannel(channel, code, value)
		case ScopeChannelLocale:
			tree.putChannelLocale(channel, locale, code, value)
		default:
			tree.putCommon(code, value)
		}
	}
	return tree
}

// ValidateValues checks a scoped tree against the family schema for the given
// locale and channel.
//
// Exactly one error is produced per required attribute whose classified
// location is empty, naming the full missing path. Values found in the common
// bag that belong to a classified non-common scope produce warnings, as do
// values whose Go shape contradicts the attribute type: both are advisory
// because the backend performs its own authoritative rejection. Unknown codes
// never block.
func ValidateValues(tree ScopedValueTree, info *FamilyAttributeInfo, locale, channel string) ValidationResult {
	result := ValidationResult{Valid: true}

	required := append([]string(nil), info.Required...)
	sort.Strings(required)
	for _, code := range required {
		meta := info.Attributes[code]
		path, present := tree.locate(meta.Scope(), locale, channel, code)
		if !present {
			result.addError(path, fmt.Sprintf("required attribute %q has no value at its %s scope", code, meta.Scope()))
		}
	}

	codes := make([]string, 0, len(tree.Common))
	for code := range tree.Common {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if code == KeySKU {
			continue
		}
		meta, known := info.Lookup(code)
		if !known {
			continue
		}
		if scope := meta.Scope(); scope != ScopeGlobal {
			result.addWarning("common."+code,
				fmt.Sprintf("attribute %q is %s-scoped; the backend will reject it from the common bag", code, scope))
		}
	}

	tree.eachValue(func(path, code string, value any) {
		meta, known := info.Lookup(code)
		if !known {
			return
		}
		if msg, ok := typeMismatch(meta.Type, value); ok {
			result.addWarning(path, msg)
		}
	})

	return result
}

// FlattenValues is the inverse of StructureValues for the given locale and
// channel: every bag entry collapses back onto its attribute code. Entries
// stored under other locales or channels are out of scope for the flattening
// view and are skipped.
func FlattenValues(tree ScopedValueTree, locale, channel string) map[string]any {
	flat := make(map[string]any)
	for code, v := range tree.Common {
		flat[code] = v
	}
	for code, v := range tree.LocaleSpecific[locale] {
		flat[code] = v
	}
	for code, v := range tree.ChannelSpecific[channel] {
		flat[code] = v
	}
	for code, v := range tree.ChannelLocaleSpecific[channel][locale] {
		flat[code] = v
	}
	if tree.Categories != nil {
		flat[KeyCategories] = tree.Categories
	}
	if tree.Associations != nil {
		flat[KeyAssociations] = tree.Associations
	}
	return flat
}

func (t *ScopedValueTree) putCommon(code string, value any) {
	if t.Common == nil {
		t.Common = make(map[string]any)
	}
	t.Common[code] = value
}

func (t *ScopedValueTree) putLocale(locale, code string, value any) {
	if t.LocaleSpecific == nil {
		t.LocaleSpecific = make(map[string]map[string]any)
	}
	if t.LocaleSpecific[locale] == nil {
		t.LocaleSpecific[locale] = make(map[string]any)
	}
	t.LocaleSpecific[locale][code] = value
}

func (t *ScopedValueTree) putChannel(channel, code string, value any) {
	if t.ChannelSpecific == nil {
		t.ChannelSpecific = make(map[string]map[string]any)
	}
	if t.ChannelSpecific[channel] == nil {
		t.ChannelSpecific[channel] = make(map[string]any)
	}
	t.ChannelSpecific[channel][code] = value
}

func (t *ScopedValueTree) putChannelLocale(channel, locale, code string, value any) {
	if t.ChannelLocaleSpecific == nil {
		t.ChannelLocaleSpecific = make(map[string]map[string]map[string]any)
	}
	if t.ChannelLocaleSpecific[channel] == nil {
		t.ChannelLocaleSpecific[channel] = make(map[string]map[string]any)
	}
	if t.ChannelLocaleSpecific[channel][locale] == nil {
		t.ChannelLocaleSpecific[channel][locale] = make(map[string]any)
	}
	t.ChannelLocaleSpecific[channel][locale][code] = value
}

// locate returns the dotted path of code in its scope's bag for the given
// locale/channel, and whether a value is present there.
func (t ScopedValueTree) locate(scope AttributeScope, locale, channel, code string) (string, bool) {
	switch scope {
	case ScopeLocale:
		_, ok := t.LocaleSpecific[locale][code]
		return fmt.Sprintf("locale_specific.%s.%s", locale, code), ok
	case ScopeChannel:
		_, ok := t.ChannelSpecific[channel][code]
		return fmt.Sprintf("channel_specific.%s.%s", channel, code), ok
	case ScopeChannelLocale:
		_, ok := t.ChannelLocaleSpecific[channel][locale][code]
		return fmt.Sprintf("channel_locale_specific.%s.%s.%s", channel, locale, code), ok
	default:
		_, ok := t.Common[code]
		return "common." + code, ok
	}
}

// eachValue visits every attribute value in the tree with its dotted path.
func (t ScopedValueTree) eachValue(visit func(path, code string, value any)) {
	for code, v := range t.Common {
		visit("common."+code, code, v)
	}
	for locale, bag := range t.LocaleSpecific {
		for code, v := range bag {
			visit(fmt.Sprintf("locale_specific.%s.%s", locale, code), code, v)
		}
	}
	for channel, bag := range t.ChannelSpecific {
		for code, v := range bag {
			visit(fmt.Sprintf("channel_specific.%s.%s", channel, code), code, v)
		}
	}
	for channel, locales := range t.ChannelLocaleSpecific {
		for locale, bag := range locales {
			for code, v := range bag {
				visit(fmt.Sprintf("channel_locale_specific.%s.%s.%s", channel, locale, code), code, v)
			}
		}
	}
}

// typeMismatch reports an obviously wrong value shape for an attribute type.
// Only unambiguous contradictions are flagged; anything plausible is left to
// the backend.
func typeMismatch(attrType string, value any) (string, bool) {
	if value == nil {
		return "", false
	}
	switch attrType {
	case "boolean":
		switch value.(type) {
		case bool:
			return "", false
		case string:
			// "true"/"1" style inputs are accepted upstream.
			return "", false
		}
		return fmt.Sprintf("boolean attribute given %T value", value), true
	case "text", "textarea", "select", "date", "datetime", "image", "file":
		switch value.(type) {
		case []any:
			return fmt.Sprintf("%s attribute given a list value", attrType), true
		case map[string]any:
			return fmt.Sprintf("%s attribute given an object value", attrType), true
		case bool:
			return fmt.Sprintf("%s attribute given a boolean value", attrType), true
		}
		return "", false
	case "multiselect", "checkbox":
		switch value.(type) {
		case bool, map[string]any:
			return fmt.Sprintf("%s attribute given %T value", attrType, value), true
		}
		return "", false
	case "price":
		// Stored as currency-keyed amounts; scalars are also accepted for
		// single-currency catalogs.
		if _, ok := value.(bool); ok {
			return "price attribute given a boolean value", true
		}
		return "", false
	case "number", "decimal":
		switch value.(type) {
		case bool, []any, map[string]any:
			return fmt.Sprintf("%s attribute given %T value", attrType, value), true
		}
		return "", false
	default:
		return "", false
	}
}
