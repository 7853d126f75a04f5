package core

import "testing"

func TestCompileStripsCommentsAndBlankLines(t *testing.T) {
	code, err := Compile(`
		# this is a full-line comment
		PUSH 1 # trailing comment

		HALT
	`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(code) != 2 {
		t.Fatalf("expected 2 instructions, got %d: %+v", len(code), code)
	}
	if code[0].Op != OpPush || code[0].Arg != 1 {
		t.Fatalf("expected PUSH 1, got %+v", code[0])
	}
	if code[1].Op != OpHalt {
		t.Fatalf("expected HALT, got %+v", code[1])
	}
}

func TestCompileIsCaseInsensitive(t *testing.T) {
	code, err := Compile("push 5\nhalt")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(code) != 2 || code[0].Op != OpPush || code[0].Arg != 5 {
		t.Fatalf("lowercase opcodes should compile identically, got %+v", code)
	}
}

func TestCompileResolvesForwardAndBackwardLabels(t *testing.T) {
	src := `
		JUMP forward
	back:
		PUSH 2
		JUMP done
	forward:
		PUSH 1
		JUMP back
	done:
		HALT
	`
	code, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	// JUMP forward -> index of the instruction right after the "forward:" label (PUSH 1)
	if code[0].Arg != 3 {
		t.Fatalf("expected JUMP forward to resolve to index 3, got %d", code[0].Arg)
	}
}

func TestCompileRejectsUnknownOpcode(t *testing.T) {
	if _, err := Compile("NOTANOP 1"); KindOf(err) != ErrUnknownOpcode {
		t.Fatalf("expected UnknownOpcode, got %v", err)
	}
}

func TestCompileRejectsMissingPushOperand(t *testing.T) {
	if _, err := Compile("PUSH"); KindOf(err) != ErrBadOperand {
		t.Fatalf("expected BadOperand, got %v", err)
	}
}

func TestCompileRejectsNonIntegerPushOperand(t *testing.T) {
	if _, err := Compile("PUSH abc"); KindOf(err) != ErrBadOperand {
		t.Fatalf("expected BadOperand, got %v", err)
	}
}

func TestCompileRejectsUnresolvedLabel(t *testing.T) {
	if _, err := Compile("JUMP nowhere\nHALT"); KindOf(err) != ErrUnresolvedLabel {
		t.Fatalf("expected UnresolvedLabel, got %v", err)
	}
}

func TestCompileRejectsEmptyLabel(t *testing.T) {
	if _, err := Compile(":\nHALT"); KindOf(err) != ErrBadOperand {
		t.Fatalf("expected BadOperand for an empty label, got %v", err)
	}
}
