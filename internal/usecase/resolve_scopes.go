package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
)

// restPrefix roots every resource path.
const restPrefix = "/api/v1/rest"

// ResolveScopesUseCase reconciles flat attribute-value sets against a
// family's remote schema: it fetches the attribute metadata, partitions it by
// storage scope, and structures/validates candidate values. It never calls a
// creation endpoint itself; preparing and validating is the whole job.
type ResolveScopesUseCase struct {
	exec   Executor
	logger *slog.Logger
}

// NewResolveScopesUseCase creates the resolver on top of the request executor.
func NewResolveScopesUseCase(exec Executor, logger *slog.Logger) *ResolveScopesUseCase {
	return &ResolveScopesUseCase{
		exec:   exec,
		logger: logger.With("usecase", "ResolveScopes"),
	}
}

// familyResponse is the family show endpoint's body. Attribute groups carry
// their member attribute codes.
type familyResponse struct {
	Code            string           `json:"code"`
	AttributeGroups []attributeGroup `json:"attribute_groups"`
}

type attributeGroup struct {
	Code             string          `json:"code"`
	CustomAttributes json.RawMessage `json:"custom_attributes"`
}

// attributeResponse tolerates the backend's loose boolean encoding
// (true/false, 0/1, "0"/"1").
type attributeResponse struct {
	Code            string   `json:"code"`
	Type            string   `json:"type"`
	IsRequired      flexBool `json:"is_required"`
	ValuePerLocale  flexBool `json:"value_per_locale"`
	ValuePerChannel flexBool `json:"value_per_channel"`
	Validation      string   `json:"validation"`
}

// FamilyAttributeInfo fetches the family's attribute-group structure,
// resolves each member attribute's metadata, and partitions the result by
// scope. Metadata lookups are one call per attribute and best-effort:
// attributes that fail to resolve are collected in Unresolved rather than
// failing the whole operation. Nothing is cached across calls; the schema is
// always re-fetched.
func (uc *ResolveScopesUseCase) FamilyAttributeInfo(ctx context.Context, familyCode string) (*domain.FamilyAttributeInfo, error) {
	log := uc.logger.With(slog.String("family", familyCode))

	raw, err := uc.exec.Execute(ctx, http.MethodGet, restPrefix+"/families/"+url.PathEscape(familyCode), nil)
	if err != nil {
		// Surfaced verbatim as the executor classified it.
		return nil, err
	}

	var family familyResponse
	if err := json.Unmarshal(unwrapData(raw), &family); err != nil {
		return nil, fmt.Errorf("malformed family response for %q: %w", familyCode, err)
	}

	codes := flattenGroupAttributes(family.AttributeGroups)
	log.Debug("Family attribute groups flattened.", slog.Int("attribute_count", len(codes)))

	attributes := make([]domain.AttributeMetadata, 0, len(codes))
	var unresolved []string
	for _, code := range codes {
		meta, err := uc.fetchAttribute(ctx, code)
		if err != nil {
			log.Warn("Attribute metadata could not be resolved, skipping.",
				slog.String("attribute", code), slog.Any("error", err))
			unresolved = append(unresolved, code)
			continue
		}
		attributes = append(attributes, meta)
	}

	info := domain.NewFamilyAttributeInfo(familyCode, attributes, unresolved)
	log.Info("Family attribute info resolved.",
		slog.Int("resolved", len(attributes)), slog.Int("unresolved", len(unresolved)))
	return info, nil
}

func (uc *ResolveScopesUseCase) fetchAttribute(ctx context.Context, code string) (domain.AttributeMetadata, error) {
	raw, err := uc.exec.Execute(ctx, http.MethodGet, restPrefix+"/attributes/"+url.PathEscape(code), nil)
	if err != nil {
		return domain.AttributeMetadata{}, err
	}
	var attr attributeResponse
	if err := json.Unmarshal(unwrapData(raw), &attr); err != nil {
		return domain.AttributeMetadata{}, fmt.Errorf("malformed attribute response for %q: %w", code, err)
	}
	if attr.Code == "" {
		attr.Code = code
	}
	return domain.AttributeMetadata{
		Code:            attr.Code,
		Type:            attr.Type,
		IsRequired:      bool(attr.IsRequired),
		ValuePerLocale:  bool(attr.ValuePerLocale),
		ValuePerChannel: bool(attr.ValuePerChannel),
		ValidationRule:  attr.Validation,
	}, nil
}

// StructureValues routes a flat value map into the scoped tree for the given
// locale and channel.
func (uc *ResolveScopesUseCase) StructureValues(flat map[string]any, info *domain.FamilyAttributeInfo, locale, channel string) domain.ScopedValueTree {
	return domain.StructureValues(flat, info, locale, channel)
}

// ValidateValues checks a scoped tree against the family schema.
func (uc *ResolveScopesUseCase) ValidateValues(tree domain.ScopedValueTree, info *domain.FamilyAttributeInfo, locale, channel string) domain.ValidationResult {
	return domain.ValidateValues(tree, info, locale, channel)
}

// PrepareValues is the fetch-structure-validate composition product writes
// run through.
func (uc *ResolveScopesUseCase) PrepareValues(ctx context.Context, familyCode string, flat map[string]any, locale, channel string) (domain.ScopedValueTree, domain.ValidationResult, *domain.FamilyAttributeInfo, error) {
	info, err := uc.FamilyAttributeInfo(ctx, familyCode)
	if err != nil {
		return domain.ScopedValueTree{}, domain.ValidationResult{}, nil, err
	}
	tree := domain.StructureValues(flat, info, locale, channel)
	result := domain.ValidateValues(tree, info, locale, channel)
	return tree, result, info, nil
}

// unwrapData strips the {"data": ...} envelope some show endpoints use.
func unwrapData(raw json.RawMessage) json.RawMessage {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		return envelope.Data
	}
	return raw
}

// flattenGroupAttributes collects member attribute codes across groups,
// de-duplicated in first-seen order. Members arrive either as plain strings
// or as objects carrying a "code" field.
func flattenGroupAttributes(groups []attributeGroup) []string {
	seen := make(map[string]struct{})
	var codes []string
	add := func(code string) {
		if code == "" {
			return
		}
		if _, dup := seen[code]; dup {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	for _, group := range groups {
		if len(group.CustomAttributes) == 0 {
			continue
		}
		var asStrings []string
		if err := json.Unmarshal(group.CustomAttributes, &asStrings); err == nil {
			for _, code := range asStrings {
				add(code)
			}
			continue
		}
		var asObjects []struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(group.CustomAttributes, &asObjects); err == nil {
			for _, obj := range asObjects {
				add(obj.Code)
			}
		}
	}
	return codes
}

// flexBool accepts the boolean spellings a PHP backend emits.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1", `"1"`, `"true"`:
		*b = true
	case "false", "0", `"0"`, `"false"`, "null", `""`:
		*b = false
	default:
		return fmt.Errorf("cannot parse %s as boolean", string(data))
	}
	return nil
}
