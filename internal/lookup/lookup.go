// Package lookup holds the static classification tables mapping raw
// telephony identifiers to human-readable categories.
package lookup

import "strings"

// branchByDNIS maps normalized DNIS numbers (last 10 digits) to branch names
var branchByDNIS = map[string]string{
	// Al-Dolai
	"7734011011": "Al-Dolai", "7735011011": "Al-Dolai", "7834011011": "Al-Dolai", "7835011011": "Al-Dolai",
	// Al-Krada
	"7742101010": "Al-Krada", "7746101010": "Al-Krada", "7842101010": "Al-Krada", "7846101010": "Al-Krada",
	// Al-Sadr - Tawn Hyp.
	"7736121212": "Al-Sadr - Tawn Hyp.", "7737121212": "Al-Sadr - Tawn Hyp.", "7836121212": "Al-Sadr - Tawn Hyp.", "7837121212": "Al-Sadr - Tawn Hyp.",
	// ElMansour
	"7732224446": "ElMansour", "7732224447": "ElMansour", "7832224447": "ElMansour", "7852224447": "ElMansour",
	// Palestine St.
	"7722900007": "Palestine St.", "7822400007": "Palestine St.", "7822900007": "Palestine St.", "7722400007": "Palestine St.",
	// Palestine St. - Tawn Hyp.
	"7734171717": "Palestine St. - Tawn Hyp.", "7735171717": "Palestine St. - Tawn Hyp.", "7834171717": "Palestine St. - Tawn Hyp.", "7835171717": "Palestine St. - Tawn Hyp.",
	// Salehia - Tawn Hyp.
	"7746161616": "Salehia - Tawn Hyp.", "7747161616": "Salehia - Tawn Hyp.", "7846161616": "Salehia - Tawn Hyp.", "7847161616": "Salehia - Tawn Hyp.",
	// Al Jamiya
	"7736141414": "Al Jamiya", "7737141414": "Al Jamiya", "7836141414": "Al Jamiya", "7837141414": "Al Jamiya",
	// Zayouna
	"7750000403": "Zayouna", "7750000406": "Zayouna", "7850000403": "Zayouna", "7850000406": "Zayouna",
}

// wrapUpByCode maps wrap-up code identifiers to display labels
var wrapUpByCode = map[string]string{
	"c649a66b-38c9-4ef5-b022-3445b061e5a0": "Order Placed طلب",
	"7553e655-f4b2-44d9-9037-407d0ec9d5f6": "Delay In Delivery تأخير في الطلب",
	"332220a7-576d-47fb-9b33-55ee16998fd9": "Order Canceled الغاء طلب",
	"d3244924-1997-45bf-8df4-9a1ef95105e3": "Complaint مشكلة في طلب",
	"6f6652bc-5a15-4c80-93c1-50c86ccec218": "Inquiry استعلام",
	"ININ-WRAP-UP-TIMEOUT":                 "ININ-WRAP-UP-TIMEOUT",
	"6c340a6b-f981-4a24-aa7e-980533cb841e": "Missed or Wrong Call رقم خاطئ او مكالمة فائته",
}

// WrapUpUncoded is the fallback label when a segment carries a wrap-up
// marker but neither a known code nor a name.
const WrapUpUncoded = "Uncoded"

// NormalizeAddress strips the tel:/sip: scheme and any @host suffix from a
// session address
func NormalizeAddress(raw string) string {
	s := strings.TrimPrefix(raw, "tel:")
	s = strings.TrimPrefix(s, "sip:")
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}
	return s
}

// NormalizeDNIS reduces a dialed number to its last 10 digits so all the
// prefix variants of one branch line collapse to a single key
func NormalizeDNIS(dnis string) string {
	var b strings.Builder
	for _, r := range dnis {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

// BranchForDNIS resolves a raw session DNIS to a branch name. The second
// return is false for numbers not present in the table; those are dropped
// by the caller, never counted.
func BranchForDNIS(dnis string) (string, bool) {
	name, ok := branchByDNIS[NormalizeDNIS(NormalizeAddress(dnis))]
	return name, ok
}

// WrapUpLabel resolves a segment's wrap-up marker to a display label.
// Resolution order: known code, raw name, raw code, then WrapUpUncoded.
func WrapUpLabel(code, name string) string {
	if code != "" {
		if label, ok := wrapUpByCode[code]; ok {
			return label
		}
	}
	if name != "" {
		return name
	}
	if code != "" {
		return code
	}
	return WrapUpUncoded
}
