package output

import (
	"fmt"

	geojson "github.com/paulmach/go.geojson"
	"github.com/southsales/tolmap/dataset"
)

// GeoJSON converts rows into a FeatureCollection of points. Properties use the
// dataset column headers as keys.
func GeoJSON(rows []dataset.Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range rows {
		r := &rows[i]
		f := geojson.NewPointFeature([]float64{r.Longitude, r.Latitude})
		f.SetProperty(dataset.ColProvince, r.Province)
		f.SetProperty(dataset.ColDistrict, r.District)
		f.SetProperty(dataset.ColSubDistrict, r.SubDistrict)
		f.SetProperty(dataset.ColHappyBlock, r.HappyBlock)
		f.SetProperty(dataset.ColNetAdd, r.NetAdd)
		f.SetProperty(dataset.ColPotentialScore, r.PotentialScore)
		f.SetProperty(dataset.ColPortUse, r.PortUse)
		f.SetProperty(dataset.ColInstall, r.Install)
		f.SetProperty(dataset.ColMarketShareTrue, r.MarketShareTrue)
		f.SetProperty(dataset.ColMarketShareAIS, r.MarketShareAIS)
		f.SetProperty(dataset.ColMarketShare3BB, r.MarketShare3BB)
		f.SetProperty(dataset.ColMarketShareNT, r.MarketShareNT)
		fc.AddFeature(f)
	}
	return fc
}

// GeoJSONBytes is GeoJSON marshalled.
func GeoJSONBytes(rows []dataset.Record) ([]byte, error) {
	b, err := GeoJSON(rows).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding geojson: %w", err)
	}
	return b, nil
}
