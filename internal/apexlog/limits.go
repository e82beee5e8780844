package apexlog

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// LimitUsage is one governor limit reading.
type LimitUsage struct {
	Current         int `json:"current" yaml:"current"`
	Max             int `json:"max" yaml:"max"`
	UsagePercentage int `json:"usagePercentage" yaml:"usagePercentage"`
}

// Limits is a per-namespace governor limit snapshot. Every category is
// always present; categories the log did not report stay zero.
type Limits struct {
	SOQLQueries      LimitUsage `json:"SOQL_QUERIES" yaml:"SOQL_QUERIES"`
	QueryRows        LimitUsage `json:"QUERY_ROWS" yaml:"QUERY_ROWS"`
	SOSLQueries      LimitUsage `json:"SOSL_QUERIES" yaml:"SOSL_QUERIES"`
	DMLStatements    LimitUsage `json:"DML_STATEMENTS" yaml:"DML_STATEMENTS"`
	DMLRows          LimitUsage `json:"DML_ROWS" yaml:"DML_ROWS"`
	CPUTime          LimitUsage `json:"CPU_TIME" yaml:"CPU_TIME"`
	HeapSize         LimitUsage `json:"HEAP_SIZE" yaml:"HEAP_SIZE"`
	Callouts         LimitUsage `json:"CALLOUTS" yaml:"CALLOUTS"`
	EmailInvocations LimitUsage `json:"EMAIL_INVOCATIONS" yaml:"EMAIL_INVOCATIONS"`
	FutureCalls      LimitUsage `json:"FUTURE_CALLS" yaml:"FUTURE_CALLS"`
	QueueableJobs    LimitUsage `json:"QUEUEABLE_JOBS" yaml:"QUEUEABLE_JOBS"`
	MobilePushCalls  LimitUsage `json:"MOBILE_PUSH_CALLS" yaml:"MOBILE_PUSH_CALLS"`
}

// limitLabels maps the labels Apex prints to the snapshot field they fill.
var limitLabels = map[string]func(*Limits) *LimitUsage{
	"number of soql queries":                      func(l *Limits) *LimitUsage { return &l.SOQLQueries },
	"number of query rows":                        func(l *Limits) *LimitUsage { return &l.QueryRows },
	"number of sosl queries":                      func(l *Limits) *LimitUsage { return &l.SOSLQueries },
	"number of dml statements":                    func(l *Limits) *LimitUsage { return &l.DMLStatements },
	"number of dml rows":                          func(l *Limits) *LimitUsage { return &l.DMLRows },
	"maximum cpu time":                            func(l *Limits) *LimitUsage { return &l.CPUTime },
	"maximum heap size":                           func(l *Limits) *LimitUsage { return &l.HeapSize },
	"number of callouts":                          func(l *Limits) *LimitUsage { return &l.Callouts },
	"number of email invocations":                 func(l *Limits) *LimitUsage { return &l.EmailInvocations },
	"number of future calls":                      func(l *Limits) *LimitUsage { return &l.FutureCalls },
	"number of queueable jobs added to the queue": func(l *Limits) *LimitUsage { return &l.QueueableJobs },
	"number of mobile apex push calls":            func(l *Limits) *LimitUsage { return &l.MobilePushCalls },
}

var limitLineRe = regexp.MustCompile(`^(.+?):\s*(\d+)\s+out\s+of\s+(\d+)`)

// ParseLimits reads a block of "<Label>: <current> out of <max>" lines.
// Unknown labels and lines without a usable "out of" are skipped.
func ParseLimits(block string) Limits {
	var limits Limits
	for _, line := range strings.Split(block, "\n") {
		m := limitLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		field, ok := limitLabels[strings.ToLower(strings.TrimSpace(m[1]))]
		if !ok {
			continue
		}
		current, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		ceiling, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		*field(&limits) = newLimitUsage(current, ceiling)
	}
	return limits
}

func newLimitUsage(current, ceiling int) LimitUsage {
	usage := LimitUsage{Current: current, Max: ceiling}
	if ceiling != 0 {
		usage.UsagePercentage = int(math.Round(float64(current) / float64(ceiling) * 100))
	}
	return usage
}
