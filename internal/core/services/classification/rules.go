package classification

import (
	"strings"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// keywordRule maps any of its keywords (lowercase substrings) to a value.
// Rule lists are evaluated in order and the first match wins.
type keywordRule[T any] struct {
	keywords []string
	value    T
}

func firstMatch[T any](rules []keywordRule[T], text string) (T, bool) {
	text = strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.value, true
			}
		}
	}
	var zero T
	return zero, false
}

// manufacturerTypeRules refine the device type from the manufacturer name.
var manufacturerTypeRules = []keywordRule[domain.DeviceType]{
	{[]string{"cisco", "juniper", "fortinet", "palo alto"}, domain.DeviceTypeRouter},
	{[]string{"hp", "canon", "epson", "brother"}, domain.DeviceTypePrinter},
	{[]string{"nest", "ring", "philips hue", "hue", "iot"}, domain.DeviceTypeIoT},
	{[]string{"apple", "samsung", "google"}, domain.DeviceTypeMobile},
}

// manufacturerCategoryRules infer a category for vendors outside the static table.
var manufacturerCategoryRules = []keywordRule[domain.Category]{
	{[]string{"fortinet", "palo alto", "checkpoint", "check point"}, domain.CategoryNetworkSecurity},
	{[]string{"cisco", "juniper", "ubiquiti", "netgear", "linksys"}, domain.CategoryNetworkEquipment},
	{[]string{"dell", "hpe", "hewlett", "hp", "supermicro"}, domain.CategoryServer},
	{[]string{"canon", "brother", "epson", "xerox"}, domain.CategoryPrinter},
	{[]string{"samsung", "xiaomi", "huawei"}, domain.CategoryMobile},
	{[]string{"raspberry", "arduino", "espressif"}, domain.CategoryIoT},
}

// hostnameTypeRules override the device type from hostname conventions.
var hostnameTypeRules = []keywordRule[domain.DeviceType]{
	{[]string{"switch"}, domain.DeviceTypeSwitch},
	{[]string{"router"}, domain.DeviceTypeRouter},
	{[]string{"ap-", "wap"}, domain.DeviceTypeAccessPoint},
	{[]string{"server", "srv", "db", "web", "mail"}, domain.DeviceTypeServer},
	{[]string{"print", "hp-", "canon", "brother"}, domain.DeviceTypePrinter},
}

// categoryTypes is the type used when no manufacturer keyword matched.
var categoryTypes = map[domain.Category]domain.DeviceType{
	domain.CategoryNetworkSecurity: domain.DeviceTypeFirewall,
	domain.CategoryServer:          domain.DeviceTypeServer,
	domain.CategoryPrinter:         domain.DeviceTypePrinter,
	domain.CategoryIoT:             domain.DeviceTypeIoT,
	domain.CategoryMobile:          domain.DeviceTypeMobile,
}

// portRule is one open-port heuristic.
type portRule struct {
	ports []int
	hint  string
	dtype domain.DeviceType // set only when the port implies a type
}

// portRules are checked in order; the first rule with an open port wins.
var portRules = []portRule{
	{ports: []int{80, 443}, hint: domain.HintWebService},
	{ports: []int{22}, hint: domain.HintSSHServer},
	{ports: []int{631, 9100}, hint: domain.HintPrinter, dtype: domain.DeviceTypePrinter},
	{ports: []int{161}, hint: domain.HintManagedDevice},
}

func matchPorts(open []int) (portRule, bool) {
	set := make(map[int]struct{}, len(open))
	for _, p := range open {
		set[p] = struct{}{}
	}
	for _, r := range portRules {
		for _, p := range r.ports {
			if _, ok := set[p]; ok {
				return r, true
			}
		}
	}
	return portRule{}, false
}
