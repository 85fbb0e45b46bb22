package pysyntax

// GuardStyle holds the names a direct-execution guard is written with.
type GuardStyle struct {
	Indent      string
	ResultVar   string
	StartMarker string
}

// InvocationGuard emits an `if __name__ == "__main__":` block that announces
// name(), calls target with no arguments and prints the result unless it is
// None. An async target is driven with asyncio.run.
func InvocationGuard(name, target string, async bool, g GuardStyle) []string {
	ind := g.Indent
	call := target + "()"
	out := []string{`if __name__ == "__main__":`}
	if async {
		out = append(out, ind+"import asyncio")
		call = "asyncio.run(" + call + ")"
	}
	return append(out,
		ind+"print("+Quote(g.StartMarker+" "+name+"()")+")",
		ind+g.ResultVar+" = "+call,
		ind+"if "+g.ResultVar+" is not None:",
		ind+ind+"print("+g.ResultVar+")",
	)
}
