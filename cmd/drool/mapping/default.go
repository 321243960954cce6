// Package mapping maps fields of the RCKMS source vocabulary onto FHIR
// resource types and element paths.
package mapping

// Default returns the curated RCKMS to FHIR R4 table. The table is partial on
// purpose: keys that are not listed are not supported yet.
func Default() *Table {
	return New(defaultEntries)
}

var defaultEntries = map[string]Target{
	// Problems and diagnoses
	"Problem.problemCode":          {ResourceType: "Condition", Path: "code"},
	"Problem.problemStatus":        {ResourceType: "Condition", Path: "clinicalStatus"},
	"Problem.verificationStatus":   {ResourceType: "Condition", Path: "verificationStatus"},
	"Problem.onsetDate":            {ResourceType: "Condition", Path: "onset"},
	"Problem.abatementDate":        {ResourceType: "Condition", Path: "abatement"},
	"Diagnosis.diagnosisCode":      {ResourceType: "Condition", Path: "code"},
	"Symptom.symptomCode":          {ResourceType: "Condition", Path: "code"},
	"Symptom.onsetDate":            {ResourceType: "Condition", Path: "onset"},
	"ReasonForVisit.reasonCode":    {ResourceType: "Encounter", Path: "reasonCode"},
	"HistoryOfPresentIllness.code": {ResourceType: "Condition", Path: "code"},

	// Laboratory
	"LabResult.testCode":                    {ResourceType: "Observation", Path: "code"},
	"LabResult.resultCode":                  {ResourceType: "Observation", Path: "value"},
	"LabResult.resultValue":                 {ResourceType: "Observation", Path: "value"},
	"LabResult.interpretation":              {ResourceType: "Observation", Path: "interpretation"},
	"LabResult.specimen.specimenType":       {ResourceType: "Specimen", Path: "type"},
	"LabOrder.orderCode":                    {ResourceType: "ServiceRequest", Path: "code"},
	"LabOrder.orderStatus":                  {ResourceType: "ServiceRequest", Path: "status"},
	"LabOrder.specimen.specimenCollectDate": {ResourceType: "Specimen", Path: "collection.collected"},

	// Encounters and procedures
	"Encounter.encounterType":   {ResourceType: "Encounter", Path: "type"},
	"Encounter.encounterClass":  {ResourceType: "Encounter", Path: "class"},
	"Encounter.encounter":       {ResourceType: "Encounter"},
	"Procedure.procedureCode":   {ResourceType: "Procedure", Path: "code"},
	"Procedure.procedureStatus": {ResourceType: "Procedure", Path: "status"},
	"Immunization.vaccineCode":  {ResourceType: "Immunization", Path: "vaccineCode"},
	"Immunization.status":       {ResourceType: "Immunization", Path: "status"},

	// Observations and social history
	"Observation.observationCode":     {ResourceType: "Observation", Path: "code"},
	"Observation.observationValue":    {ResourceType: "Observation", Path: "value"},
	"VitalSign.vitalSignCode":         {ResourceType: "Observation", Path: "code"},
	"VitalSign.vitalSignValue":        {ResourceType: "Observation", Path: "value"},
	"Pregnancy.pregnancyStatus":       {ResourceType: "Observation", Path: "value"},
	"Occupation.occupationCode":       {ResourceType: "Observation", Path: "value"},
	"TravelHistory.location.country":  {ResourceType: "Observation", Path: "component.value"},
	"TravelHistory.dateOfTravel":      {ResourceType: "Observation", Path: "effective"},
	"ExposureHistory.exposureAgent":   {ResourceType: "Observation", Path: "value"},
	"ExposureHistory.exposureSetting": {ResourceType: "Observation", Path: "component.value"},

	// Demographics
	"Patient.gender":        {ResourceType: "Patient", Path: "gender"},
	"Patient.birthDate":     {ResourceType: "Patient", Path: "birthDate"},
	"Patient.deceased":      {ResourceType: "Patient", Path: "deceased"},
	"Patient.address.state": {ResourceType: "Patient", Path: "address.state"},

	// Report context: the path is known, the resource depends on the report
	"Report.reportingJurisdiction": {Path: "jurisdiction"},
	"Report.reportDate":            {Path: "date"},

	// Medications and substances need ingredient resolution before they can
	// be mapped, so they stay unsupported:
	// "Medication.medicationCode"
	// "Medication.substance.substanceCode"
	// "MedicationAdministered.medicationCode"
}
