package mint

import "testing"

func TestValidEnvTag(t *testing.T) {
	tests := map[string]struct {
		envTag string
		valid  bool
	}{
		"dev":   {envTag: EnvTag_Dev, valid: true},
		"qa":    {envTag: EnvTag_Qa, valid: true},
		"prod":  {envTag: EnvTag_Prod, valid: true},
		"empty": {envTag: "", valid: false},
		"tnet":  {envTag: "tnet", valid: false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if valid := ValidEnvTag(test.envTag); valid != test.valid {
				t.Errorf("expected %v for %q, got %v", test.valid, test.envTag, valid)
			}
		})
	}
}
