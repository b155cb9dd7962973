// Package qrcodec extracts a vehicle plate from the payload of a scanned
// code. Scanners in the field deliver three shapes: a JSON object carrying an
// identifier field, a deep link into the booking site, or the bare plate.
package qrcodec

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domainerrors"
	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
)

// identifierFields are probed in order when the payload is a JSON object.
var identifierFields = []string{"patente", "plate", "id"}

const vehiclePathSegment = "/vehiculo/"

// Decode extracts the plate from a scan payload. Shapes are tried in order:
// JSON object, /vehiculo/<id> URL, raw identifier. All converge through plate
// normalization, so `{"patente":"abc123 "}` and "ABC123" decode equally.
func Decode(payload string) (id.Plate, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", malformed("empty scan payload")
	}

	if raw, ok := decodeObject(payload); ok {
		plate, err := id.ParsePlate(raw)
		if err != nil {
			return "", malformed("scan object carries no usable identifier")
		}
		return plate, nil
	}

	if raw, ok := decodeVehicleURL(payload); ok {
		plate, err := id.ParsePlate(raw)
		if err != nil {
			return "", malformed("scan URL carries no usable identifier")
		}
		return plate, nil
	}

	plate, err := id.ParsePlate(payload)
	if err != nil {
		return "", malformed("scan payload is not an identifier")
	}
	return plate, nil
}

func decodeObject(payload string) (string, bool) {
	if !strings.HasPrefix(payload, "{") {
		return "", false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return "", false
	}
	for _, key := range identifierFields {
		if raw, ok := obj[key].(string); ok && strings.TrimSpace(raw) != "" {
			return raw, true
		}
	}
	return "", false
}

func decodeVehicleURL(payload string) (string, bool) {
	idx := strings.Index(payload, vehiclePathSegment)
	if idx < 0 {
		return "", false
	}
	rest := payload[idx+len(vehiclePathSegment):]
	if cut := strings.IndexAny(rest, "/?#"); cut >= 0 {
		rest = rest[:cut]
	}
	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return decoded, true
}

func malformed(message string) error {
	return domainerrors.New(domainerrors.CodeBadRequest, message)
}
