package parser

import "testing"

const sampleSpec = `spec "greeting" v1.0.0 {
  description: "Greets a visitor"

  inputs: {
    name: string { required: true, min_length: 1 }
    title: string = "friend" { required: false }
  }

  computed: {
    greeting: string = ` + "`Hello, ${title} ${name}!`" + `
  }

  constraints: {
    assert len(name) <= 64, "name is too long"
  }

  events: {
    onCreate(self) -> echo.echo(value: self.name)
  }

  lifecycle: {
    finally: echo.echo(value: "done")
  }

  extensions: {
    echo: "echo@1.0"
  }
}
`

func TestParseString(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw, err := p.ParseString(sampleSpec)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if raw.Name != `"greeting"` {
		t.Errorf("Name = %q, want a quoted \"greeting\"", raw.Name)
	}
	if raw.Version != "v1.0.0" {
		t.Errorf("Version = %q, want v1.0.0", raw.Version)
	}
	if len(raw.Blocks) != 7 {
		t.Errorf("len(Blocks) = %d, want 7", len(raw.Blocks))
	}
}

func TestParseStringRejectsMissingBraces(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.ParseString(`spec "broken" v1.0.0 {`); err == nil {
		t.Fatal("expected a parse error for an unterminated spec body")
	}
}

func TestParseSingleQuotedString(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src := `spec 'greeting' v1.0.0 {
  inputs: {
    title: string = 'friend' { required: false }
  }
}
`
	raw, err := p.ParseString(src)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if raw.Name != `'greeting'` {
		t.Errorf("Name = %q, want a single-quoted 'greeting'", raw.Name)
	}
}

func TestParseTernaryAndParens(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src := `spec "cond" v1.0.0 {
  inputs: {
    tier: string = "standard" { required: false }
  }
  computed: {
    discount: number = tier == "gold" ? 0.1 : (tier == "platinum" ? 0.2 : 0)
  }
}
`
	if _, err := p.ParseString(src); err != nil {
		t.Fatalf("ParseString: %v", err)
	}
}
