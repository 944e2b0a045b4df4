package driver

import (
	"os"
	"strings"
	"testing"

	"github.com/gox8632/x8632cc/pkg/ctx"
	"github.com/gox8632/x8632cc/pkg/irtext"
	"gopkg.in/yaml.v3"
)

// goldenSpec is one YAML-described scenario: an irtext program plus the
// substring/order/absence properties its emitted assembly must satisfy.
// Grounded in cmd/ralph-cc/integration_test.go's E2EAsmTestSpec shape
// (Expect/ExpectOrder/ExpectNot fields, gopkg.in/yaml.v3 tags), adapted
// to read pkg/irtext input instead of C source.
type goldenSpec struct {
	Name        string   `yaml:"name"`
	Mode        string   `yaml:"mode"`
	ISA         string   `yaml:"isa"`
	Input       string   `yaml:"input"`
	Expect      []string `yaml:"expect"`
	ExpectOrder []string `yaml:"expect_order"`
	ExpectNot   []string `yaml:"expect_not"`
	Skip        bool     `yaml:"skip"`
}

// TestGoldenScenariosFromYAML runs every fixture in
// testdata/scenarios.yaml through the driver and checks its assembly
// output. It skips gracefully when the fixture file is absent, the usual
// convention for optional golden data.
func TestGoldenScenariosFromYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/scenarios.yaml")
	if os.IsNotExist(err) {
		t.Skip("no testdata/scenarios.yaml present")
	}
	if err != nil {
		t.Fatalf("reading testdata/scenarios.yaml: %v", err)
	}

	var specs []goldenSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		t.Fatalf("parsing testdata/scenarios.yaml: %v", err)
	}
	if len(specs) == 0 {
		t.Fatal("expected at least one scenario in testdata/scenarios.yaml")
	}

	for _, spec := range specs {
		spec := spec
		t.Run(spec.Name, func(t *testing.T) {
			if spec.Skip {
				t.Skip("marked skip in testdata/scenarios.yaml")
			}

			p := irtext.NewParser(irtext.NewLexer(spec.Input))
			mod := p.ParseModule()
			if len(p.Errors()) > 0 {
				t.Fatalf("parsing scenario %q: %v", spec.Name, p.Errors())
			}

			c := ctx.New()
			if spec.ISA == "sse4.1" {
				c.ISA = ctx.SSE41
			}
			var out string
			var compileErr error
			if spec.Mode == "Om1" {
				out, compileErr = TranslateOm1(c, mod)
			} else {
				out, compileErr = TranslateO2(c, mod)
			}
			if compileErr != nil {
				t.Fatalf("compiling scenario %q: %v", spec.Name, compileErr)
			}

			for _, want := range spec.Expect {
				if !strings.Contains(out, want) {
					t.Errorf("scenario %q: expected output to contain %q, got:\n%s", spec.Name, want, out)
				}
			}
			for _, unwanted := range spec.ExpectNot {
				if strings.Contains(out, unwanted) {
					t.Errorf("scenario %q: expected output NOT to contain %q, got:\n%s", spec.Name, unwanted, out)
				}
			}
			lastIdx := -1
			for _, want := range spec.ExpectOrder {
				idx := strings.Index(out, want)
				if idx < 0 {
					t.Errorf("scenario %q: expected output to contain %q, got:\n%s", spec.Name, want, out)
					break
				}
				if idx < lastIdx {
					t.Errorf("scenario %q: expected %q to appear after the previous expect_order entry, got:\n%s", spec.Name, want, out)
				}
				lastIdx = idx
			}
		})
	}
}
