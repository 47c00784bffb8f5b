package classification

import "github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"

// ouiEntry is one row of the static manufacturer table.
type ouiEntry struct {
	Manufacturer string
	Category     domain.Category
}

// staticOUITable holds the prefixes the classifier resolves without any
// external lookup.
var staticOUITable = map[string]ouiEntry{
	// Fortinet
	"00:09:0F": {"Fortinet", domain.CategoryNetworkSecurity},
	"90:6C:AC": {"Fortinet", domain.CategoryNetworkSecurity},
	"00:90:7F": {"Fortinet", domain.CategoryNetworkSecurity},

	// Cisco
	"00:1B:0D": {"Cisco", domain.CategoryNetworkEquipment},
	"00:1E:13": {"Cisco", domain.CategoryNetworkEquipment},
	"00:23:EA": {"Cisco", domain.CategoryNetworkEquipment},
	"B8:BE:BF": {"Cisco", domain.CategoryNetworkEquipment},

	// HP / HPE
	"00:1B:78": {"HP", domain.CategoryNetworkEquipment},
	"94:57:A5": {"HPE", domain.CategoryNetworkEquipment},
	"80:C1:6E": {"HPE", domain.CategoryServer},
	"00:01:E3": {"HP", domain.CategoryPrinter},
	"D4:C9:EF": {"HP", domain.CategoryPrinter},

	// Dell
	"00:14:22": {"Dell", domain.CategoryServer},
	"90:B1:1C": {"Dell", domain.CategoryServer},
	"B0:83:FE": {"Dell", domain.CategoryServer},

	// Apple
	"00:1B:63": {"Apple", domain.CategoryEndpoint},
	"A8:96:75": {"Apple", domain.CategoryEndpoint},
	"F4:F1:5A": {"Apple", domain.CategoryEndpoint},

	// Microsoft
	"00:12:5A": {"Microsoft", domain.CategoryEndpoint},
	"7C:ED:8D": {"Microsoft", domain.CategoryEndpoint},

	// Ubiquiti
	"00:15:6D": {"Ubiquiti", domain.CategoryNetworkEquipment},
	"24:A4:3C": {"Ubiquiti", domain.CategoryNetworkEquipment},
	"F0:9F:C2": {"Ubiquiti", domain.CategoryNetworkEquipment},

	// Netgear
	"00:09:5B": {"Netgear", domain.CategoryNetworkEquipment},
	"20:4E:7F": {"Netgear", domain.CategoryNetworkEquipment},

	// Printers
	"00:11:85": {"Canon", domain.CategoryPrinter},
	"00:1E:8F": {"Canon", domain.CategoryPrinter},
	"00:0D:9A": {"Brother", domain.CategoryPrinter},
	"00:80:92": {"Brother", domain.CategoryPrinter},
	"00:80:77": {"Brother", domain.CategoryPrinter},
	"18:A6:05": {"Epson", domain.CategoryPrinter},
	"00:00:48": {"Epson", domain.CategoryPrinter},
	"00:80:91": {"Epson", domain.CategoryPrinter},

	// Raspberry Pi
	"B4:E6:2D": {"Raspberry Pi", domain.CategoryIoT},
	"DC:A6:32": {"Raspberry Pi", domain.CategoryIoT},
	"E4:5F:01": {"Raspberry Pi", domain.CategoryIoT},

	// Samsung
	"40:B0:FA": {"Samsung", domain.CategoryMobile},
	"E8:99:C4": {"Samsung", domain.CategoryMobile},
	"20:02:AF": {"Samsung", domain.CategoryMobile},
}

// StaticPrefixes returns the number of prefixes in the static table.
func StaticPrefixes() int {
	return len(staticOUITable)
}
