package ril

// Numeric "+CME ERROR" codes reported by the device with AT+CMEE=1.
// The set below covers 3GPP TS 27.007 general and SIM related codes
// plus the vendor audio range.
const (
	CodePhoneFailure        uint16 = 0
	CodeNoConnectionToPhone uint16 = 1
	CodePhoneAdaptorLink    uint16 = 2
	CodeNotAllowed          uint16 = 3
	CodeNotSupported        uint16 = 4
	CodePhSimPinRequired    uint16 = 5
	CodePhFsimPinRequired   uint16 = 6
	CodePhFsimPukRequired   uint16 = 10
	CodeSimNotInserted      uint16 = 11
	CodeSimPinRequired      uint16 = 12
	CodeSimPukRequired      uint16 = 13
	CodeSimFailure          uint16 = 14
	CodeSimBusy             uint16 = 15
	CodeSimWrong            uint16 = 16
	CodeIncorrectPassword   uint16 = 17
	CodeSimPin2Required     uint16 = 18
	CodeSimPuk2Required     uint16 = 19
	CodeMemoryFull          uint16 = 20
	CodeInvalidIndex        uint16 = 21
	CodeNotFound            uint16 = 22
	CodeMemoryFailure       uint16 = 23
	CodeTextTooLong         uint16 = 24
	CodeInvalidTextChars    uint16 = 25
	CodeDialStringTooLong   uint16 = 26
	CodeInvalidDialChars    uint16 = 27
	CodeNoNetworkService    uint16 = 30
	CodeNetworkTimeout      uint16 = 31
	CodeNetworkNotAllowed   uint16 = 32
	CodeNetworkPinRequired  uint16 = 40
	CodeNetworkPukRequired  uint16 = 41
	CodeAudioUnknown        uint16 = 901
	CodeAudioInvalidParams  uint16 = 902
	CodeAudioNotSupported   uint16 = 903
	CodeAudioDeviceBusy     uint16 = 904
)
