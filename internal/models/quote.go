package models

import (
	"strconv"
	"strings"
	"time"
)

// Quote is the vehicle sale quote document edited by the user.
type Quote struct {
	// company
	CompanyName    string `json:"companyName"`
	CompanyPhone   string `json:"companyPhone"`
	CompanyEmail   string `json:"companyEmail"`
	CompanyAddress string `json:"companyAddress"`
	LogoURL        string `json:"logoUrl,omitempty"`

	// client
	ClientName string `json:"clientName"`
	QuoteDate  string `json:"quoteDate"`
	QuoteID    string `json:"quoteId"`

	// vehicle
	Price             float64 `json:"price"`
	Currency          string  `json:"currency"`
	Year              string  `json:"year"`
	Model             string  `json:"model"`
	Brand             string  `json:"brand"`
	EngineShort       string  `json:"engineShort"`
	EngineFull        string  `json:"engineFull"`
	TransmissionShort string  `json:"transmissionShort"`
	TransmissionFull  string  `json:"transmissionFull"`
	SuspensionShort   string  `json:"suspensionShort"`
	SuspensionFull    string  `json:"suspensionFull"`
	TowingCapacity    string  `json:"towingCapacity"`
	Axles             string  `json:"axles"`
	Fuel              string  `json:"fuel"`
	Mileage           string  `json:"mileage"`
	InvoiceType       string  `json:"invoiceType"`
	WheelSize         string  `json:"wheelSize"`
	GearRatio         string  `json:"gearRatio"`
	VIN               string  `json:"vin"`
	RenovationNote    string  `json:"renovationNote"`
	ImageURL          string  `json:"imageUrl,omitempty"`

	// labels
	LabelQuoteTitle      string `json:"labelQuoteTitle"`
	LabelClient          string `json:"labelClient"`
	LabelPrice           string `json:"labelPrice"`
	LabelRenovationTitle string `json:"labelRenovationTitle"`
	LabelSpecsTitle      string `json:"labelSpecsTitle"`
	FooterTitle          string `json:"footerTitle"`
	FooterText           string `json:"footerText"`
	GeneratedBy          string `json:"generatedBy"`
}

// DefaultQuote returns a fresh quote dated now. Extractable vehicle fields start blank.
func DefaultQuote(now time.Time) Quote {
	return Quote{
		CompanyName:    "TRACTOS DEL BAJÍO",
		CompanyPhone:   "442-123-4567",
		CompanyEmail:   "ventas@tractosdelbajio.com",
		CompanyAddress: "Querétaro, México",

		ClientName: "Transportes Logísticos S.A. de C.V.",
		QuoteDate:  now.Format("2006-01-02"),
		QuoteID:    "COT-" + now.Format("2006") + "-001",

		Currency:       "MXN",
		Fuel:           "Diesel",
		InvoiceType:    "Refacturado",
		RenovationNote: "Este tractocamión tiene un proceso de renovación total mecánica y estética.",

		LabelQuoteTitle:      "COTIZACIÓN",
		LabelClient:          "Atención a:",
		LabelPrice:           "Precio de Lista",
		LabelRenovationTitle: "Garantía de Calidad",
		LabelSpecsTitle:      "Ficha Técnica",
		FooterTitle:          "¿Listo para hacer negocio?",
		FooterText:           "Contáctanos para agendar una prueba de manejo.",
		GeneratedBy:          "Documento generado por Tractos.Com",
	}
}

// stringField maps extractable string fields to their slot in the quote.
func (q *Quote) stringField(f Field) *string {
	switch f {
	case FieldYear:
		return &q.Year
	case FieldVIN:
		return &q.VIN
	case FieldMileage:
		return &q.Mileage
	case FieldEngineShort:
		return &q.EngineShort
	case FieldEngineFull:
		return &q.EngineFull
	case FieldTransmissionShort:
		return &q.TransmissionShort
	case FieldTransmissionFull:
		return &q.TransmissionFull
	case FieldSuspensionShort:
		return &q.SuspensionShort
	case FieldSuspensionFull:
		return &q.SuspensionFull
	case FieldTowingCapacity:
		return &q.TowingCapacity
	case FieldModel:
		return &q.Model
	case FieldBrand:
		return &q.Brand
	}
	return nil
}

// Apply merges updates into q. Only keys present in updates overwrite; keys
// outside the vocabulary and values of the wrong shape are skipped. It returns
// the number of fields written.
func (q *Quote) Apply(updates FieldUpdateMap) int {
	applied := 0
	for f, v := range updates {
		if f == FieldPrice {
			if price, ok := toFloat(v); ok {
				q.Price = price
				applied++
			}
			continue
		}
		slot := q.stringField(f)
		if slot == nil {
			continue
		}
		if s, ok := toString(v); ok {
			*slot = s
			applied++
		}
	}
	return applied
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	}
	return "", false
}
