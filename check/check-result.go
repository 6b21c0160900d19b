// Copyright 2020, Square, Inc.

package check

// CheckResult is the errors and warnings of one job.
type CheckResult struct {
	Errors   []error
	Warnings []error
}

// CheckResults is check results keyed by job id.
type CheckResults struct {
	Results    map[string]*CheckResult
	AnyError   bool
	AnyWarning bool
}

func NewCheckResults() *CheckResults {
	return &CheckResults{
		Results: map[string]*CheckResult{},
	}
}

func (c *CheckResults) AddError(key string, err error) {
	if _, ok := c.Results[key]; !ok {
		c.Results[key] = &CheckResult{}
	}
	c.Results[key].Errors = append(c.Results[key].Errors, err)
	c.AnyError = true
}

func (c *CheckResults) AddWarning(key string, err error) {
	if _, ok := c.Results[key]; !ok {
		c.Results[key] = &CheckResult{}
	}
	c.Results[key].Warnings = append(c.Results[key].Warnings, err)
	c.AnyWarning = true
}

func (c *CheckResults) Union(other *CheckResults) {
	for key, result := range other.Results {
		if _, ok := c.Results[key]; !ok {
			c.Results[key] = &CheckResult{}
		}
		c.Results[key].Errors = append(c.Results[key].Errors, result.Errors...)
		c.Results[key].Warnings = append(c.Results[key].Warnings, result.Warnings...)
	}
	c.AnyError = c.AnyError || other.AnyError
	c.AnyWarning = c.AnyWarning || other.AnyWarning
}

func (c *CheckResults) Get(key string) (*CheckResult, bool) {
	result, ok := c.Results[key]
	return result, ok
}
