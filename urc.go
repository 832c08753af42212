package ril

import (
	"strings"

	"github.com/hamsadev/ril/at"
)

// URCType identifies a catalogued unsolicited result code.
type URCType int

const (
	URCUnknown URCType = iota

	// Network registration
	URCNetReg     // +CREG, basic registration status
	URCNetRegLoc  // +CREG with LAC/CI info
	URCEpsReg     // +CEREG, LTE registration
	URCGprsReg    // +CGREG
	URCGprsRegLoc // +CGREG with LAC/CI info

	// Time
	URCTimeZone    // +CTZV
	URCTimeZoneExt // +CTZE

	// SMS
	URCSmsStored       // +CMTI, new SMS stored in memory
	URCSmsDirect       // +CMT, new SMS delivered to TE
	URCSmsStatusReport // +CDS
	URCSmsStatusStored // +CDSI

	// Calls
	URCConnectedLine // +COLP
	URCCallerID      // +CLIP
	URCRingExt       // +CRING

	// Boot and SIM
	URCReady         // RDY
	URCFunReady      // +CFUN: 1
	URCSimStatus     // +CPIN
	URCSmsInit       // +QIND: SMS DONE
	URCPhonebookInit // +QIND: PB DONE
	URCSimInserted   // +USIM: 0
	URCUsimInserted  // +USIM: 1
	URCSimHotSwap    // +QSIMSTAT

	// Packet domain events
	URCPdpReject      // +CGEV: REJECT
	URCPdpNetReact    // +CGEV: NW REACT
	URCPdpNetDeact    // +CGEV: NW DEACT
	URCPdpLocalDeact  // +CGEV: ME DEACT
	URCPdpNetDetach   // +CGEV: NW DETACH
	URCPdpLocalDetach // +CGEV: ME DETACH
	URCPdpNetClass    // +CGEV: NW CLASS
	URCPdpLocalClass  // +CGEV: ME CLASS
	URCPdnActivated   // +CGEV: PDN ACT
	URCPdnDeactivated // +CGEV: PDN DEACT

	// Vendor indications
	URCSignalChange   // +QIND: "csq"
	URCSmsFull        // +QIND: "smsfull"
	URCRatChange      // +QIND: "act"
	URCSignalDetailed // +QCSQ
	URCNetDevStatus   // +QNETDEVSTATUS

	// MQTT
	URCMqttState   // +QMTSTAT
	URCMqttMessage // +QMTRECV
	URCMqttPing    // +QMTPING
)

// URCRecord is one catalog entry: a line prefix to recognize, and the
// command (if any) that enables the report on the device.
type URCRecord struct {
	Type       URCType
	Prefix     string
	Activation string
}

// Catalog order matters: matching is contains based and first wins, so
// more specific prefixes must precede the broader ones they contain.
var urcCatalog = []URCRecord{
	{URCNetReg, "+CREG", "AT+CREG=1"},
	{URCNetRegLoc, "+CREG", "AT+CREG=2"},
	{URCEpsReg, "+CEREG", "AT+CEREG=2"},
	{URCGprsReg, "+CGREG", "AT+CGREG=1"},
	{URCGprsRegLoc, "+CGREG", "AT+CGREG=2"},

	{URCTimeZone, "+CTZV", "AT+CTZR=1"},
	{URCTimeZoneExt, "+CTZE", "AT+CTZR=2"},

	{URCSmsStored, "+CMTI", "AT+CNMI=2,1,0,1,0"},
	{URCSmsDirect, "+CMT", ""},
	{URCSmsStatusStored, "+CDSI", ""},
	{URCSmsStatusReport, "+CDS", ""},

	{URCConnectedLine, "+COLP", "AT+COLP=1"},
	{URCCallerID, "+CLIP", "AT+CLIP=1"},
	{URCRingExt, "+CRING", "AT+CRC=1"},

	{URCReady, "RDY", ""},
	{URCFunReady, "+CFUN: 1", ""},
	{URCSimStatus, "+CPIN", ""},
	{URCSmsInit, "+QIND: SMS DONE", ""},
	{URCPhonebookInit, "+QIND: PB DONE", ""},

	{URCPdpReject, "+CGEV: REJECT", "AT+CGEREP=1,1"},
	{URCPdpNetReact, "+CGEV: NW REACT", "AT+CGEREP=1,1"},
	{URCPdpNetDeact, "+CGEV: NW DEACT", "AT+CGEREP=1,1"},
	{URCPdpLocalDeact, "+CGEV: ME DEACT", "AT+CGEREP=1,1"},
	{URCPdpNetDetach, "+CGEV: NW DETACH", "AT+CGEREP=1,1"},
	{URCPdpLocalDetach, "+CGEV: ME DETACH", "AT+CGEREP=1,1"},
	{URCPdpNetClass, "+CGEV: NW CLASS", "AT+CGEREP=1,1"},
	{URCPdpLocalClass, "+CGEV: ME CLASS", "AT+CGEREP=1,1"},
	{URCPdnActivated, "+CGEV: PDN ACT", "AT+CGEREP=1,1"},
	{URCPdnDeactivated, "+CGEV: PDN DEACT", "AT+CGEREP=1,1"},

	{URCSimInserted, "+USIM: 0", ""},
	{URCUsimInserted, "+USIM: 1", ""},

	{URCSignalChange, `+QIND: "csq"`, `AT+QINDCFG="csq",0,0`},
	{URCSmsFull, `+QIND: "smsfull"`, `AT+QINDCFG="smsfull",1,0`},
	{URCRatChange, `+QIND: "act"`, `AT+QINDCFG="act",1,0`},

	{URCSimHotSwap, "+QSIMSTAT", "AT+QSIMSTAT=1"},
	{URCSignalDetailed, "+QCSQ", "AT+QCSQ=0"},
	{URCNetDevStatus, "+QNETDEVSTATUS", ""},
	{URCMqttState, "+QMTSTAT", ""},
	{URCMqttMessage, "+QMTRECV", ""},
	{URCMqttPing, "+QMTPING", ""},
}

// URC is one recognized unsolicited report.
type URC struct {
	// Type identifies the catalog entry that matched.
	Type URCType
	// Line is the verbatim line as received.
	Line string
	// Params holds the typed parameters following the report prefix,
	// in positional order. Empty for bare reports like RDY.
	Params []at.Value
}

// URCFunc receives unsolicited reports observed between commands.
// It is called from the goroutine running ServiceTick and must not
// submit commands synchronously.
type URCFunc func(u URC)

// ParseURC matches line against the catalog and extracts its typed
// parameters. It reports false for lines matching no catalog entry.
func ParseURC(line string) (URC, bool) {
	for _, rec := range urcCatalog {
		idx := strings.Index(line, rec.Prefix)
		if idx < 0 {
			continue
		}

		u := URC{Type: rec.Type, Line: line}
		rest := strings.TrimLeft(line[idx+len(rec.Prefix):], ": ,")
		if rest != "" {
			cur := at.NewCursor(rest, ',')
			for {
				v, ok := cur.Next()
				if !ok {
					break
				}
				u.Params = append(u.Params, v)
			}
		}
		return u, true
	}
	return URC{}, false
}

// activationCommands returns the catalog's device-side enable
// commands, deduplicated in catalog order. Several entries share one
// command (the +CGEV family) and the duplicated +CREG/+CGREG modes
// would otherwise be sent twice.
func activationCommands() []string {
	seen := make(map[string]bool, len(urcCatalog))
	var cmds []string
	for _, rec := range urcCatalog {
		if rec.Activation == "" || seen[rec.Activation] {
			continue
		}
		seen[rec.Activation] = true
		cmds = append(cmds, rec.Activation)
	}
	return cmds
}
