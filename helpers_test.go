package filtertools

import (
	"strings"
	"sync"

	"github.com/jerry-enebeli/filtertools/model"
	"gopkg.in/yaml.v3"
)

func yamlDecode(doc string, out interface{}) error {
	return yaml.Unmarshal([]byte(doc), out)
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

var registered sync.Map

func registerOnce(kind model.Kind) error {
	if _, loaded := registered.LoadOrStore(kind, true); loaded {
		return nil
	}
	return model.RegisterKind(kind, "")
}
