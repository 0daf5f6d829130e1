package dataset

import (
	"sync"
	"time"
)

// Column headers of the dataset file. Matching is exact after trimming
// whitespace and a leading BOM.
const (
	ColProvince        = "Province"
	ColDistrict        = "District"
	ColSubDistrict     = "Sub-district"
	ColHappyBlock      = "Happy Block"
	ColLatitude        = "Latitude"
	ColLongitude       = "Longitude"
	ColNetAdd          = "Net Add"
	ColPotentialScore  = "Potential Score"
	ColPortUse         = "Port Use"
	ColInstall         = "Install"
	ColMarketShareTrue = "Market Share True (%)"
	ColMarketShareAIS  = "Market Share AIS (%)"
	ColMarketShare3BB  = "Market Share 3BB (%)"
	ColMarketShareNT   = "Market Share NT (%)"
)

// RequiredColumns lists every column the loader insists on, in export order.
var RequiredColumns = []string{
	ColProvince, ColDistrict, ColSubDistrict, ColHappyBlock,
	ColLatitude, ColLongitude,
	ColNetAdd, ColPotentialScore, ColPortUse, ColInstall,
	ColMarketShareTrue, ColMarketShareAIS, ColMarketShare3BB, ColMarketShareNT,
}

// MarketShareColumns are stored as 0-1 ratios and converted to percentages on load.
var MarketShareColumns = []string{
	ColMarketShareTrue, ColMarketShareAIS, ColMarketShare3BB, ColMarketShareNT,
}

// Level is one step of the Province > District > Sub-district > Happy Block hierarchy.
type Level uint8

const (
	Province Level = iota
	District
	SubDistrict
	HappyBlock
)

// Levels in containment order.
var Levels = []Level{Province, District, SubDistrict, HappyBlock}

func (l Level) String() string {
	switch l {
	case Province:
		return ColProvince
	case District:
		return ColDistrict
	case SubDistrict:
		return ColSubDistrict
	case HappyBlock:
		return ColHappyBlock
	default:
		return "unknown"
	}
}

// Record is one row of the dataset: a geographic sub-unit with its sales and
// market metrics. Market share fields hold percentages (0-100).
type Record struct {
	Province    string `json:"province"`
	District    string `json:"district"`
	SubDistrict string `json:"subdistrict"`
	HappyBlock  string `json:"happyblock"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	NetAdd         float64 `json:"netAdd"`
	PotentialScore float64 `json:"potentialScore"`
	PortUse        float64 `json:"portUse"`
	Install        float64 `json:"install"`

	MarketShareTrue float64 `json:"marketShareTrue"`
	MarketShareAIS  float64 `json:"marketShareAIS"`
	MarketShare3BB  float64 `json:"marketShare3BB"`
	MarketShareNT   float64 `json:"marketShareNT"`
}

// Field returns the hierarchy value of the record at the given level.
func (r *Record) Field(l Level) string {
	switch l {
	case Province:
		return r.Province
	case District:
		return r.District
	case SubDistrict:
		return r.SubDistrict
	case HappyBlock:
		return r.HappyBlock
	}
	return ""
}

// Dataset is the full record set. It is built once and never mutated afterwards,
// so it can be shared by any number of concurrent readers.
type Dataset struct {
	Records  []Record
	Source   string
	LoadedAt time.Time

	indexOnce sync.Once
	index     *Index
}

// New wraps already-normalized records into a Dataset and builds its hierarchy index.
func New(records []Record, source string) *Dataset {
	return &Dataset{
		Records:  records,
		Source:   source,
		LoadedAt: time.Now().UTC(),
		index:    BuildIndex(records),
	}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Index returns the hierarchy index built at load time.
func (d *Dataset) Index() *Index {
	d.indexOnce.Do(func() {
		if d.index == nil {
			d.index = BuildIndex(d.Records)
		}
	})
	return d.index
}
