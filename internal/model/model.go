// Package model holds the configuration records shared by the configurator,
// pricing, routing and checkout packages. The JSON shape of these types is the
// persisted layout, so field tags must not change without bumping SchemaVersion.
package model

import "encoding/json"

// SchemaVersion is written into every persisted configuration. Records with
// another version are discarded on load.
const SchemaVersion = 1

type ProductLine string

const (
	LineTrac360     ProductLine = "trac360"
	LineFunction360 ProductLine = "function360"
)

func (l ProductLine) Valid() bool {
	return l == LineTrac360 || l == LineFunction360
}

// StepID identifies a page of a configurator flow.
type StepID string

// TRAC360 steps.
const (
	StepTractorInfo    StepID = "tractor-info"
	StepValveSetup     StepID = "valve-setup"
	StepOperationType  StepID = "operation-type"
	StepCircuits       StepID = "circuits"
	StepValveAdaptors  StepID = "valve-adaptors"
	StepHoseProtection StepID = "hose-protection"
	StepAccessories    StepID = "accessories"
	StepAdditionalInfo StepID = "additional-info"
)

// FUNCTION360 steps.
const (
	StepEquipment        StepID = "equipment"
	StepDiverterValve    StepID = "diverter-valve"
	StepQuickCouplings   StepID = "quick-couplings"
	StepAdaptors         StepID = "adaptors"
	StepHydraulicHoses   StepID = "hydraulic-hoses"
	StepElectrical       StepID = "electrical"
	StepMountingBrackets StepID = "mounting-brackets"
	StepAdditionalNotes  StepID = "additional-notes"
)

// StepSummary is the final step of both flows.
const StepSummary StepID = "summary"

// StepState records the explicit actions a user took on an optional step.
// Typing a note clears both flags; see configurator.SetStepNote.
type StepState struct {
	NotRequired bool   `json:"notRequired"`
	Confirmed   bool   `json:"confirmed"`
	Note        string `json:"note"`
}

// ReminderPosition is the session-scoped position of the draggable price
// reminder. It lives beside the configuration and is dropped by Reset.
type ReminderPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Artifact references a rendered document in blob storage.
type Artifact struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// CartLineItem is handed to the cart collaborator at confirmation.
// Configurator-built items always have Quantity 1.
type CartLineItem struct {
	CartID        string          `json:"cartId"`
	Type          ProductLine     `json:"type"`
	Name          string          `json:"name"`
	TotalPrice    Price           `json:"totalPrice"`
	Quantity      int             `json:"quantity"`
	PDFArtifact   Artifact        `json:"pdfArtifact"`
	Configuration json.RawMessage `json:"configuration"`
	CreatedAt     int64           `json:"createdAt"`
}
