package p4calc

// Compute is what a P4calc device does with a request: 32-bit wrapping
// arithmetic, and 1 or 0 for comparisons. ok is false for unknown op codes.
func Compute(op string, a, b int32) (result int32, ok bool) {
	switch op {
	case "+":
		return a + b, true
	case "-":
		return a - b, true
	case "&":
		return a & b, true
	case "|":
		return a | b, true
	case "^":
		return a ^ b, true
	case "~":
		return ^a, true
	case "<":
		return boolResult(a < b), true
	case ">":
		return boolResult(a > b), true
	case "<=":
		return boolResult(a <= b), true
	case ">=":
		return boolResult(a >= b), true
	case "==":
		return boolResult(a == b), true
	case "!=":
		return boolResult(a != b), true
	}
	return 0, false
}

func boolResult(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

// Reply returns the device's answer to req.
func Reply(req Frame) (Frame, bool) {
	result, ok := Compute(req.Operator(), req.OperandA, req.OperandB)
	if !ok {
		return Frame{}, false
	}
	reply := req
	reply.Result = result
	return reply, true
}
