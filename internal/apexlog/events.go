package apexlog

import (
	"regexp"
	"strings"
)

// EventType is a decoded event tag, field 1 of a log record.
type EventType int

const (
	EventUnknown EventType = iota

	EventCodeUnitStarted
	EventMethodEntry
	EventSOQLExecuteBegin
	EventDMLBegin
	EventExecutionStarted
	EventFlowStartInterviewBegin
	EventFlowElementBegin
	EventFlowBulkElementBegin
	EventFlowStartInterviewsBegin
	EventEnteringManagedPkg
	EventCalloutRequest

	EventCodeUnitFinished
	EventMethodExit
	EventSOQLExecuteEnd
	EventDMLEnd
	EventExecutionFinished
	EventFlowStartInterviewEnd
	EventFlowElementEnd
	EventFlowBulkElementEnd
	EventFlowStartInterviewsEnd
	EventCalloutResponse

	EventUserInfo
	EventLimitUsageForNS
	EventNamedCredentialRequest
	EventNamedCredentialResponse
	EventNamedCredentialResponseDetail
	EventFatalError

	numEventTypes
)

var eventTags = map[string]EventType{
	"CODE_UNIT_STARTED":                EventCodeUnitStarted,
	"METHOD_ENTRY":                     EventMethodEntry,
	"SOQL_EXECUTE_BEGIN":               EventSOQLExecuteBegin,
	"DML_BEGIN":                        EventDMLBegin,
	"EXECUTION_STARTED":                EventExecutionStarted,
	"FLOW_START_INTERVIEW_BEGIN":       EventFlowStartInterviewBegin,
	"FLOW_ELEMENT_BEGIN":               EventFlowElementBegin,
	"FLOW_BULK_ELEMENT_BEGIN":          EventFlowBulkElementBegin,
	"FLOW_START_INTERVIEWS_BEGIN":      EventFlowStartInterviewsBegin,
	"ENTERING_MANAGED_PKG":             EventEnteringManagedPkg,
	"CALLOUT_REQUEST":                  EventCalloutRequest,
	"CODE_UNIT_FINISHED":               EventCodeUnitFinished,
	"METHOD_EXIT":                      EventMethodExit,
	"SOQL_EXECUTE_END":                 EventSOQLExecuteEnd,
	"DML_END":                          EventDMLEnd,
	"EXECUTION_FINISHED":               EventExecutionFinished,
	"FLOW_START_INTERVIEW_END":         EventFlowStartInterviewEnd,
	"FLOW_ELEMENT_END":                 EventFlowElementEnd,
	"FLOW_BULK_ELEMENT_END":            EventFlowBulkElementEnd,
	"FLOW_START_INTERVIEWS_END":        EventFlowStartInterviewsEnd,
	"CALLOUT_RESPONSE":                 EventCalloutResponse,
	"USER_INFO":                        EventUserInfo,
	"LIMIT_USAGE_FOR_NS":               EventLimitUsageForNS,
	"NAMED_CREDENTIAL_REQUEST":         EventNamedCredentialRequest,
	"NAMED_CREDENTIAL_RESPONSE":        EventNamedCredentialResponse,
	"NAMED_CREDENTIAL_RESPONSE_DETAIL": EventNamedCredentialResponseDetail,
	"FATAL_ERROR":                      EventFatalError,
}

// opens maps each opening event to the variant it creates.
var opens = map[EventType]NodeType{
	EventCodeUnitStarted:          NodeCodeUnit,
	EventMethodEntry:              NodeMethod,
	EventSOQLExecuteBegin:         NodeSOQL,
	EventDMLBegin:                 NodeDML,
	EventExecutionStarted:         NodeExecution,
	EventFlowStartInterviewBegin:  NodeFlowStartInterview,
	EventFlowElementBegin:         NodeFlowElement,
	EventFlowBulkElementBegin:     NodeFlowBulkElement,
	EventFlowStartInterviewsBegin: NodeFlow,
	EventEnteringManagedPkg:       NodeManagedPkg,
	EventCalloutRequest:           NodeCallout,
}

// closes maps each closing event to the variant it finalizes.
var closes = map[EventType]NodeType{
	EventCodeUnitFinished:       NodeCodeUnit,
	EventMethodExit:             NodeMethod,
	EventSOQLExecuteEnd:         NodeSOQL,
	EventDMLEnd:                 NodeDML,
	EventExecutionFinished:      NodeExecution,
	EventFlowStartInterviewEnd:  NodeFlowStartInterview,
	EventFlowElementEnd:         NodeFlowElement,
	EventFlowBulkElementEnd:     NodeFlowBulkElement,
	EventFlowStartInterviewsEnd: NodeFlow,
	EventCalloutResponse:        NodeCallout,
}

// ParseEventType decodes an event tag. Unrecognized tags decode to EventUnknown.
func ParseEventType(tag string) EventType {
	return eventTags[tag]
}

func (e EventType) String() string {
	for tag, t := range eventTags {
		if t == e {
			return tag
		}
	}
	return "UNKNOWN"
}

// Opens reports the variant an opening event creates.
func (e EventType) Opens() (NodeType, bool) {
	t, ok := opens[e]
	return t, ok
}

// Closes reports the variant a closing event finalizes.
func (e EventType) Closes() (NodeType, bool) {
	t, ok := closes[e]
	return t, ok
}

// headerRe matches the first line of every debug log: an API version
// followed by the first Category,Level declaration.
var headerRe = regexp.MustCompile(`^\d+\.\d+\s+(APEX_CODE|APEX_PROFILING|CALLOUT|DATA_ACCESS|DB|NBA|SYSTEM|VALIDATION|VISUALFORCE|WAVE|WORKFLOW),[A-Z]+`)

// IsHeader reports whether line begins a new debug log.
func IsHeader(line string) bool {
	return headerRe.MatchString(line)
}

// levelsRe is a looser header match used when parsing a single log, so a
// header naming a category this package does not know still yields levels.
var levelsRe = regexp.MustCompile(`^\d+(\.\d+)+\s+[A-Za-z_]+,[A-Za-z]+`)

func declaresLevels(line string) bool {
	return levelsRe.MatchString(strings.TrimSpace(line))
}

// recordRe matches the timing field that starts every event record.
var recordRe = regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}(\.\d+)?\s*\(\d+\)\|`)

// isRecordStart reports whether line begins a new event record rather than
// continuing the previous one.
func isRecordStart(line string) bool {
	return recordRe.MatchString(line)
}
