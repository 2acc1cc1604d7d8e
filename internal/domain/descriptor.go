package domain

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/go-playground/validator/v10"

	pkgerrors "loomworks/pkg/errors"
)

// UniqueKey names a field whose value must be unique within a domain table.
// The engine checks keys against the store before persisting.
type UniqueKey struct {
	Field string
	Value string
}

// Descriptor parameterizes the workflow engine for one entity domain: how to
// construct a blank record, which table it persists to, and which fields are
// unique. Validation runs off the record's struct tags plus the extra checks
// registered here.
type Descriptor struct {
	Type   EntityType
	Table  string
	New    func() Record
	Unique func(Record) []UniqueKey
	// extra holds domain checks the tag validator cannot express.
	extra func(Record) error
}

var validate = validator.New()

// registry maps every workflow-managed domain to its descriptor. Adding an
// eleventh domain means adding a record type and one entry here.
var registry = map[EntityType]Descriptor{
	TypeEmployee: {
		Type: TypeEmployee, Table: "employees",
		New: func() Record { return &Employee{} },
		Unique: func(r Record) []UniqueKey {
			return []UniqueKey{{Field: "employeeId", Value: r.(*Employee).EmployeeCode}}
		},
	},
	TypeProject: {
		Type: TypeProject, Table: "projects",
		New: func() Record { return &Project{} },
	},
	TypeExport: {
		Type: TypeExport, Table: "exports",
		New: func() Record { return &Export{} },
		Unique: func(r Record) []UniqueKey {
			return []UniqueKey{{Field: "orderRef", Value: r.(*Export).OrderRef}}
		},
	},
	TypeRawMaterial: {
		Type: TypeRawMaterial, Table: "raw_materials",
		New: func() Record { return &RawMaterial{} },
	},
	TypeWorkforce: {
		Type: TypeWorkforce, Table: "workforce",
		New: func() Record { return &Workforce{} },
	},
	TypeBuyer: {
		Type: TypeBuyer, Table: "buyers",
		New: func() Record { return &Buyer{} },
		Unique: func(r Record) []UniqueKey {
			return []UniqueKey{{Field: "email", Value: r.(*Buyer).Email}}
		},
		extra: func(r Record) error {
			if !govalidator.IsEmail(r.(*Buyer).Email) {
				return pkgerrors.New(pkgerrors.CodeValidation, "buyer email is not a valid address")
			}
			return nil
		},
	},
	TypeFinancial: {
		Type: TypeFinancial, Table: "financials",
		New: func() Record { return &Financial{} },
		Unique: func(r Record) []UniqueKey {
			return []UniqueKey{{Field: "period", Value: r.(*Financial).Period}}
		},
		extra: func(r Record) error {
			f := r.(*Financial)
			for _, rng := range []string{f.RevenueRange, f.ProfitRange} {
				if !isIntRange(rng) {
					return pkgerrors.Newf(pkgerrors.CodeValidation,
						"range %q must look like \"50000-60000\"", rng)
				}
			}
			return nil
		},
	},
	TypeMedia: {
		Type: TypeMedia, Table: "media",
		New: func() Record { return &Media{} },
	},
	TypeUpdate: {
		Type: TypeUpdate, Table: "updates",
		New: func() Record { return &Update{} },
	},
	TypeCompany: {
		Type: TypeCompany, Table: "companies",
		New: func() Record { return &Company{} },
		Unique: func(r Record) []UniqueKey {
			return []UniqueKey{{Field: "registration", Value: r.(*Company).Registration}}
		},
	},
}

// Lookup resolves a descriptor from a domain tag, case-insensitively so the
// URL segment "rawmaterial" matches TypeRawMaterial.
func Lookup(name string) (Descriptor, error) {
	for t, d := range registry {
		if strings.EqualFold(string(t), name) {
			return d, nil
		}
	}
	return Descriptor{}, pkgerrors.Newf(pkgerrors.CodeBadRequest, "unknown entity domain %q", name)
}

// Describe resolves a descriptor from its type tag.
func Describe(t EntityType) (Descriptor, bool) {
	d, ok := registry[t]
	return d, ok
}

// Validate runs required-field and domain checks, returning a validation
// error naming the first offending field.
func (d Descriptor) Validate(r Record) error {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return pkgerrors.Newf(pkgerrors.CodeValidation,
				"field %s failed %s validation", fe.Field(), fe.Tag())
		}
		return pkgerrors.Wrap(err, pkgerrors.CodeValidation, "invalid record")
	}
	if d.extra != nil {
		return d.extra(r)
	}
	return nil
}

// UniqueKeys returns the uniqueness constraints for a record, empty for
// domains without any.
func (d Descriptor) UniqueKeys(r Record) []UniqueKey {
	if d.Unique == nil {
		return nil
	}
	return d.Unique(r)
}

// Decode unmarshals a snapshot or payload into a fresh record of this domain.
func (d Descriptor) Decode(data []byte) (Record, error) {
	r := d.New()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeBadRequest, "malformed payload")
	}
	return r, nil
}

// ApplyPayload overlays payload fields onto an existing record while keeping
// the engine-owned Meta intact, so a payload can never reassign ownership or
// flip status directly.
func (d Descriptor) ApplyPayload(r Record, payload []byte) error {
	preserved := *r.Workflow()
	if err := json.Unmarshal(payload, r); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeBadRequest, "malformed payload")
	}
	*r.Workflow() = preserved
	return nil
}

func isIntRange(s string) bool {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return false
	}
	return govalidator.IsNumeric(strings.TrimSpace(lo)) && govalidator.IsNumeric(strings.TrimSpace(hi))
}
