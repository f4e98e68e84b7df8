package predict

import "github.com/goliatone/go-ototahmin/pkg/cascade"

// Request is the canonical prediction body. Numbers are sent as JSON
// numbers.
type Request struct {
	Brand            string  `json:"Brand"`
	Series           string  `json:"Series"`
	Model            string  `json:"Model"`
	Year             float64 `json:"Year"`
	Mileage          float64 `json:"Mileage"`
	EngineSize       float64 `json:"EngineSize"`
	EnginePower      float64 `json:"EnginePower"`
	TransmissionType string  `json:"TransmissionType"`
	FuelType         string  `json:"FuelType"`
	BodyType         string  `json:"BodyType"`
	DriveType        string  `json:"DriveType"`
}

// NewRequest copies form into a request body.
func NewRequest(form cascade.FormState) Request {
	return Request{
		Brand:            form.Brand,
		Series:           form.Series,
		Model:            form.Model,
		Year:             form.Year,
		Mileage:          form.Mileage,
		EngineSize:       form.EngineSize,
		EnginePower:      form.EnginePower,
		TransmissionType: form.Transmission,
		FuelType:         form.Fuel,
		BodyType:         form.Body,
		DriveType:        form.Drive,
	}
}

// Payload returns the request keyed by canonical field name.
func (r Request) Payload() map[string]any {
	return map[string]any{
		string(cascade.FieldBrand):        r.Brand,
		string(cascade.FieldSeries):       r.Series,
		string(cascade.FieldModel):        r.Model,
		string(cascade.FieldYear):         r.Year,
		string(cascade.FieldMileage):      r.Mileage,
		string(cascade.FieldEngineSize):   r.EngineSize,
		string(cascade.FieldEnginePower):  r.EnginePower,
		string(cascade.FieldTransmission): r.TransmissionType,
		string(cascade.FieldFuel):         r.FuelType,
		string(cascade.FieldBody):         r.BodyType,
		string(cascade.FieldDrive):        r.DriveType,
	}
}
