package models

import "strings"

// LabelFields is the drug-label vocabulary offered to the translation model,
// in prompt order.
var LabelFields = []Field{
	"abuse",
	"controlled_substance",
	"dependence",
	"drug_abuse_and_dependence",
	"overdosage",
	"adverse_reactions",
	"drug_and_or_laboratory_test_interactions",
	"drug_interactions",
	"clinical_pharmacology",
	"mechanism_of_action",
	"pharmacodynamics",
	"pharmacokinetics",
	"effective_time",
	"id",
	"set_id",
	"version",
	"active_ingredient",
	"contraindications",
	"description",
	"dosage_and_administration",
	"dosage_forms_and_strengths",
	"inactive_ingredient",
	"indications_and_usage",
	"purpose",
	"spl_product_data_elements",
	"animal_pharmacology_and_or_toxicology",
	"carcinogenesis_and_mutagenesis_and_impairment_of_fertility",
	"nonclinical_toxicology",
	"application_number",
	"brand_name",
	"generic_name",
	"manufacturer_name",
	"nui",
	"package_ndc",
	"pharm_class_cs",
	"pharm_class_epc",
	"pharm_class_moa",
	"pharm_class_pe",
	"product_ndc",
	"product_type",
	"route",
	"rxcui",
	"spl_id",
	"spl_set_id",
	"substance_name",
	"unii",
	"upc",
	"laboratory_tests",
	"microbiology",
	"package_label_principal_display_panel",
	"recent_major_changes",
	"spl_unclassified_section",
	"ask_doctor",
	"ask_doctor_or_pharmacist",
	"do_not_use",
	"information_for_owners_or_caregivers",
	"information_for_patients",
	"instructions_for_use",
	"keep_out_of_reach_of_children",
	"other_safety_information",
	"patient_medication_information",
	"questions",
	"spl_medguide",
	"spl_patient_package_insert",
	"stop_use",
	"when_using",
	"clinical_studies",
	"references",
	"geriatric_use",
	"labor_and_delivery",
	"nursing_mothers",
	"pediatric_use",
	"pregnancy",
	"pregnancy_or_breast_feeding",
	"teratogenic_effects",
	"use_in_specific_populations",
	"how_supplied",
	"safe_handling_warning",
	"storage_and_handling",
	"boxed_warning",
	"general_precautions",
	"precautions",
	"user_safety_warnings",
	"warnings",
}

// openFDAFields are harmonized under the "openfda." prefix.
var openFDAFields = map[Field]struct{}{
	"application_number": {},
	"brand_name":         {},
	"generic_name":       {},
	"manufacturer_name":  {},
	"nui":                {},
	"package_ndc":        {},
	"pharm_class_cs":     {},
	"pharm_class_epc":    {},
	"pharm_class_moa":    {},
	"pharm_class_pe":     {},
	"product_ndc":        {},
	"product_type":       {},
	"route":              {},
	"rxcui":              {},
	"spl_id":             {},
	"spl_set_id":         {},
	"substance_name":     {},
	"unii":               {},
	"upc":                {},
}

var labelFieldSet = func() map[Field]struct{} {
	set := make(map[Field]struct{}, len(LabelFields))
	for _, f := range LabelFields {
		set[f] = struct{}{}
	}
	return set
}()

// IsKnownField reports whether name is a label field or an openfda.* field.
func IsKnownField(name string) bool {
	if rest, ok := strings.CutPrefix(name, "openfda."); ok {
		_, found := openFDAFields[Field(rest)]
		return found
	}
	_, found := labelFieldSet[Field(name)]
	return found
}

// IsSearchableField is IsKnownField that also accepts the ".exact" suffix
// openFDA uses for whole-phrase matching.
func IsSearchableField(name string) bool {
	return IsKnownField(strings.TrimSuffix(name, ".exact"))
}
