package apexlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		field string
		want  int64
	}{
		{"12:00:00.0 (123456)", 123456},
		{"09:41:07.123 (0)", 0},
		{"12:00:00.0", 0},
		{"12:00:00.0 (abc)", 0},
		{"12:00:00.0 (99999999999999999999999)", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTimestamp(tt.field))
		})
	}
}

func TestParseLineNumber(t *testing.T) {
	assert.Equal(t, 42, ParseLineNumber("[42]"))
	assert.Equal(t, 7, ParseLineNumber(" [7] "))
	assert.Equal(t, 0, ParseLineNumber("[EXTERNAL]"))
	assert.Equal(t, 0, ParseLineNumber(""))
}

func TestParseRowCount(t *testing.T) {
	tests := []struct {
		field string
		want  int
	}{
		{"Rows:12", 12},
		{"Rows: 3", 3},
		{"Rows", 0},
		{"42", 42},
		{"Rows:x", 0},
		{"a:b:5", 5},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRowCount(tt.field))
		})
	}
}

func TestParseSOQLObject(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"where clause", "SELECT Id FROM Account WHERE Name = 'x'", "account"},
		{"lower case", "select id from Contact", "contact"},
		{"relationship sub-query", "SELECT Id, (SELECT Id FROM Contacts) FROM Account", "account"},
		{"semi-join", "SELECT Id FROM Account WHERE Id IN (SELECT AccountId FROM Contact)", "account"},
		{"order and limit", "SELECT Id FROM Opportunity ORDER BY Name LIMIT 5", "opportunity"},
		{"aggregate", "SELECT COUNT() FROM Lead", "lead"},
		{"no from", "FIND {acme} RETURNING Account", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSOQLObject(tt.query))
		})
	}
}

func TestParseLogLevels(t *testing.T) {
	levels := ParseLogLevels("64.0 APEX_CODE,FINEST;APEX_PROFILING,INFO;DB,INFO;DB,INFO")

	assert.Equal(t, []LogLevel{
		{Category: "APEX_CODE", Level: "FINEST"},
		{Category: "APEX_PROFILING", Level: "INFO"},
		{Category: "DB", Level: "INFO"},
		{Category: "DB", Level: "INFO"},
	}, levels)

	assert.Empty(t, ParseLogLevels("64.0"))
	assert.Empty(t, ParseLogLevels(""))
}

func TestParseLimitsDefaultsMissingCategories(t *testing.T) {
	limits := ParseLimits("  Number of SOQL queries: 3 out of 100")

	assert.Equal(t, Limits{SOQLQueries: LimitUsage{Current: 3, Max: 100, UsagePercentage: 3}}, limits)
}

func TestParseLimits(t *testing.T) {
	block := `
  Number of SOQL queries: 12 out of 100 ******* CLOSE TO LIMIT
  Number of query rows: 0 out of 50000
  Number of SOSL queries: 1 out of 20
  Number of DML statements: 3 out of 150
  Number of Publish Immediate DML: 0 out of 150
  Number of DML rows: 9 out of 10000
  Maximum CPU time: 500 out of 10000
  Maximum heap size: 0 out of 6000000
  Number of callouts: 2 out of 100
  Number of Email Invocations: 0 out of 10
  Number of future calls: 1 out of 50
  Number of queueable jobs added to the queue: 0 out of 50
  Number of Mobile Apex push calls: 0 out of 10
  Number of widgets: 4 out of 5
  Maximum cheese: lots`

	limits := ParseLimits(block)

	assert.Equal(t, LimitUsage{Current: 12, Max: 100, UsagePercentage: 12}, limits.SOQLQueries)
	assert.Equal(t, LimitUsage{Current: 0, Max: 50000}, limits.QueryRows)
	assert.Equal(t, LimitUsage{Current: 1, Max: 20, UsagePercentage: 5}, limits.SOSLQueries)
	assert.Equal(t, LimitUsage{Current: 3, Max: 150, UsagePercentage: 2}, limits.DMLStatements)
	assert.Equal(t, LimitUsage{Current: 9, Max: 10000}, limits.DMLRows)
	assert.Equal(t, LimitUsage{Current: 500, Max: 10000, UsagePercentage: 5}, limits.CPUTime)
	assert.Equal(t, LimitUsage{Current: 0, Max: 6000000}, limits.HeapSize)
	assert.Equal(t, LimitUsage{Current: 2, Max: 100, UsagePercentage: 2}, limits.Callouts)
	assert.Equal(t, LimitUsage{Current: 0, Max: 10}, limits.EmailInvocations)
	assert.Equal(t, LimitUsage{Current: 1, Max: 50, UsagePercentage: 2}, limits.FutureCalls)
	assert.Equal(t, LimitUsage{Current: 0, Max: 50}, limits.QueueableJobs)
	assert.Equal(t, LimitUsage{Current: 0, Max: 10}, limits.MobilePushCalls)
}

func TestParseLimitsZeroMax(t *testing.T) {
	limits := ParseLimits("Number of callouts: 4 out of 0")

	assert.Equal(t, LimitUsage{Current: 4}, limits.Callouts)
}

func TestIsHeader(t *testing.T) {
	assert.True(t, IsHeader("64.0 APEX_CODE,FINEST;DB,INFO"))
	assert.True(t, IsHeader("58.0  SYSTEM,DEBUG"))
	assert.False(t, IsHeader("12:00:00.0 (1)|EXECUTION_STARTED"))
	assert.False(t, IsHeader("64.0 something else"))
	assert.False(t, IsHeader("v64.0 APEX_CODE,FINEST"))
}
