package runner

// Progress shows that a long-running command is busy. The returned function
// stops the indicator.
type Progress func(activity string) (stop func())

// NoProgress shows nothing.
func NoProgress(string) func() { return func() {} }
