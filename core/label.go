package core

import "strings"

// Label is the fixed set of named sections of a drug label. Every section is
// optional; a nil pointer means the export did not carry it.
type Label struct {
	GenericName              *string     `json:"genericName,omitempty"`
	LabelerName              *string     `json:"labelerName,omitempty"`
	ProductType              *string     `json:"productType,omitempty"`
	EffectiveTime            *string     `json:"effectiveTime,omitempty"`
	Title                    *string     `json:"title,omitempty"`
	IndicationsAndUsage      *string     `json:"indicationsAndUsage,omitempty"`
	DosageAndAdministration  *string     `json:"dosageAndAdministration,omitempty"`
	DosageFormsAndStrengths  *string     `json:"dosageFormsAndStrengths,omitempty"`
	WarningsAndPrecautions   *string     `json:"warningsAndPrecautions,omitempty"`
	AdverseReactions         *string     `json:"adverseReactions,omitempty"`
	ClinicalPharmacology     *string     `json:"clinicalPharmacology,omitempty"`
	ClinicalStudies          *string     `json:"clinicalStudies,omitempty"`
	HowSupplied              *string     `json:"howSupplied,omitempty"`
	UseInSpecificPopulations *string     `json:"useInSpecificPopulations,omitempty"`
	Description              *string     `json:"description,omitempty"`
	NonclinicalToxicology    *string     `json:"nonclinicalToxicology,omitempty"`
	InstructionsForUse       *string     `json:"instructionsForUse,omitempty"`
	MechanismOfAction        *string     `json:"mechanismOfAction,omitempty"`
	Contraindications        *string     `json:"contraindications,omitempty"`
	BoxedWarning             *string     `json:"boxedWarning,omitempty"`
	DrugInteractions         *string     `json:"drugInteractions,omitempty"`
	Highlights               *Highlights `json:"highlights,omitempty"`
}

// Section keys as they appear in the export.
const (
	SectionGenericName              = "genericName"
	SectionLabelerName              = "labelerName"
	SectionProductType              = "productType"
	SectionEffectiveTime            = "effectiveTime"
	SectionTitle                    = "title"
	SectionIndicationsAndUsage      = "indicationsAndUsage"
	SectionDosageAndAdministration  = "dosageAndAdministration"
	SectionDosageFormsAndStrengths  = "dosageFormsAndStrengths"
	SectionWarningsAndPrecautions   = "warningsAndPrecautions"
	SectionAdverseReactions         = "adverseReactions"
	SectionClinicalPharmacology     = "clinicalPharmacology"
	SectionClinicalStudies          = "clinicalStudies"
	SectionHowSupplied              = "howSupplied"
	SectionUseInSpecificPopulations = "useInSpecificPopulations"
	SectionDescription              = "description"
	SectionNonclinicalToxicology    = "nonclinicalToxicology"
	SectionInstructionsForUse       = "instructionsForUse"
	SectionMechanismOfAction        = "mechanismOfAction"
	SectionContraindications        = "contraindications"
	SectionBoxedWarning             = "boxedWarning"
	SectionDrugInteractions         = "drugInteractions"
	// SectionHighlightsDosage addresses Highlights.DosageAndAdministration.
	SectionHighlightsDosage = "highlights.dosageAndAdministration"
)

// SectionKeys lists every addressable section in export order.
var SectionKeys = []string{
	SectionGenericName,
	SectionLabelerName,
	SectionProductType,
	SectionEffectiveTime,
	SectionTitle,
	SectionIndicationsAndUsage,
	SectionDosageAndAdministration,
	SectionDosageFormsAndStrengths,
	SectionWarningsAndPrecautions,
	SectionAdverseReactions,
	SectionClinicalPharmacology,
	SectionClinicalStudies,
	SectionHowSupplied,
	SectionUseInSpecificPopulations,
	SectionDescription,
	SectionNonclinicalToxicology,
	SectionInstructionsForUse,
	SectionMechanismOfAction,
	SectionContraindications,
	SectionBoxedWarning,
	SectionDrugInteractions,
	SectionHighlightsDosage,
}

// ContentSectionKeys are the clinical sections that carry HTML content, in the
// order they are concatenated for embedding.
var ContentSectionKeys = []string{
	SectionIndicationsAndUsage,
	SectionDosageAndAdministration,
	SectionDosageFormsAndStrengths,
	SectionWarningsAndPrecautions,
	SectionAdverseReactions,
	SectionClinicalPharmacology,
	SectionClinicalStudies,
	SectionHowSupplied,
	SectionUseInSpecificPopulations,
	SectionDescription,
	SectionNonclinicalToxicology,
	SectionInstructionsForUse,
	SectionMechanismOfAction,
	SectionContraindications,
	SectionBoxedWarning,
	SectionHighlightsDosage,
}

func (l *Label) field(key string) (**string, bool) {
	switch key {
	case SectionGenericName:
		return &l.GenericName, true
	case SectionLabelerName:
		return &l.LabelerName, true
	case SectionProductType:
		return &l.ProductType, true
	case SectionEffectiveTime:
		return &l.EffectiveTime, true
	case SectionTitle:
		return &l.Title, true
	case SectionIndicationsAndUsage:
		return &l.IndicationsAndUsage, true
	case SectionDosageAndAdministration:
		return &l.DosageAndAdministration, true
	case SectionDosageFormsAndStrengths:
		return &l.DosageFormsAndStrengths, true
	case SectionWarningsAndPrecautions:
		return &l.WarningsAndPrecautions, true
	case SectionAdverseReactions:
		return &l.AdverseReactions, true
	case SectionClinicalPharmacology:
		return &l.ClinicalPharmacology, true
	case SectionClinicalStudies:
		return &l.ClinicalStudies, true
	case SectionHowSupplied:
		return &l.HowSupplied, true
	case SectionUseInSpecificPopulations:
		return &l.UseInSpecificPopulations, true
	case SectionDescription:
		return &l.Description, true
	case SectionNonclinicalToxicology:
		return &l.NonclinicalToxicology, true
	case SectionInstructionsForUse:
		return &l.InstructionsForUse, true
	case SectionMechanismOfAction:
		return &l.MechanismOfAction, true
	case SectionContraindications:
		return &l.Contraindications, true
	case SectionBoxedWarning:
		return &l.BoxedWarning, true
	case SectionDrugInteractions:
		return &l.DrugInteractions, true
	case SectionHighlightsDosage:
		if l.Highlights == nil {
			l.Highlights = &Highlights{}
		}
		return &l.Highlights.DosageAndAdministration, true
	}
	return nil, false
}

// Section returns the value of a section by key. Absent sections and unknown
// keys both yield an empty string; use Lookup to tell them apart.
func (l *Label) Section(key string) string {
	v, _ := l.Lookup(key)
	return v
}

// Lookup returns a section's value and whether it is present.
func (l *Label) Lookup(key string) (string, bool) {
	if key == SectionHighlightsDosage && l.Highlights == nil {
		return "", false
	}
	ptr, ok := l.field(key)
	if !ok || *ptr == nil {
		return "", false
	}
	return **ptr, true
}

// SetSection assigns a section by key.
func (l *Label) SetSection(key, value string) error {
	ptr, ok := l.field(key)
	if !ok {
		return ErrUnknownSection
	}
	v := value
	*ptr = &v
	return nil
}

// MapSections replaces every present section with fn(key, value).
func (l *Label) MapSections(fn func(key, value string) string) {
	for _, key := range SectionKeys {
		if v, ok := l.Lookup(key); ok {
			_ = l.SetSection(key, fn(key, v))
		}
	}
}

// Concat joins the named sections in order, skipping absent ones.
func (l *Label) Concat(keys ...string) string {
	var b strings.Builder
	for _, key := range keys {
		b.WriteString(l.Section(key))
	}
	return b.String()
}

// Clone returns a deep copy of the label.
func (l *Label) Clone() Label {
	var out Label
	for _, key := range SectionKeys {
		if v, ok := l.Lookup(key); ok {
			_ = out.SetSection(key, v)
		}
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
