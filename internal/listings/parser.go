package listings

import (
	"strconv"
	"strings"

	"homescout/server/internal/models"
)

// rawListing is one heterogeneous record from the listings provider. Fields
// arrive as strings or numbers depending on the record shape; hdpData, when
// present, carries the denser per-listing payload.
type rawListing struct {
	ZPID          any    `json:"zpid"`
	Address       string `json:"address"`
	DetailURL     string `json:"detailUrl"`
	ImgSrc        string `json:"imgSrc"`
	Price         string `json:"price"`
	StatusType    string `json:"statusType"`
	StatusText    string `json:"statusText"`
	ListingType   string `json:"listingType"`
	Area          any    `json:"area"`
	MinArea       any    `json:"minArea"`
	LotAreaString string `json:"lotAreaString"`
	Beds          any    `json:"beds"`
	MinBeds       any    `json:"minBeds"`
	Baths         any    `json:"baths"`
	MinBaths      any    `json:"minBaths"`
	VariableData  *struct {
		Text string `json:"text"`
	} `json:"variableData"`
	HDPData *struct {
		HomeInfo hdpHomeInfo `json:"homeInfo"`
	} `json:"hdpData"`
}

type hdpHomeInfo struct {
	ZPID          int64   `json:"zpid"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	ZipCode       string  `json:"zipcode"`
	Price         float64 `json:"price"`
	Bedrooms      float64 `json:"bedrooms"`
	Bathrooms     float64 `json:"bathrooms"`
	LivingArea    float64 `json:"livingArea"`
	HomeType      string  `json:"homeType"`
	RentZestimate float64 `json:"rentZestimate"`
	Zestimate     float64 `json:"zestimate"`
}

// parseResult normalizes one provider record into a Property. Records lacking
// an id after parsing are unusable and dropped by the caller.
func parseResult(item rawListing) models.Property {
	prop := models.Property{
		Address:     item.Address,
		DetailURL:   item.DetailURL,
		ImgSrc:      item.ImgSrc,
		Price:       parsePrice(item.Price),
		StatusType:  item.StatusType,
		StatusText:  item.StatusText,
		ListingType: item.ListingType,
	}
	if item.StatusType == models.StatusTypeSold && item.VariableData != nil {
		prop.LastSold = item.VariableData.Text
	}

	// Detail-path address heuristic; replaced below when HDP data is present.
	applyDetailPath(&prop, item.DetailURL)

	if area := coerceNumber(item.Area, item.MinArea); area > 0 {
		prop.LivingArea = area
	}
	if item.LotAreaString != "" {
		if lot, err := strconv.ParseFloat(strings.ReplaceAll(item.LotAreaString, ",", ""), 64); err == nil {
			prop.LotArea = lot
		}
	}

	if item.HDPData != nil {
		applyHDPInfo(&prop, item.HDPData.HomeInfo)
	} else {
		applySparseInfo(&prop, item)
	}
	return prop
}

// applyDetailPath extracts an address/city/state/zip tuple from a detail-page
// path of the form /.../word-word-...-CITY-STATE-ZIP/..., splitting on hyphens
// with the last three tokens assumed to be zip, state and city. The heuristic
// breaks for multi-word city names (only the last word survives); this is a
// documented limitation, not a bug.
func applyDetailPath(prop *models.Property, detailURL string) {
	segments := strings.Split(detailURL, "/")
	if len(segments) < 3 {
		return
	}
	tokens := strings.Split(segments[2], "-")
	if len(tokens) < 4 {
		return
	}

	last := len(tokens)
	if zip, err := strconv.Atoi(tokens[last-1]); err == nil {
		prop.ZipCode = zip
	}
	prop.State = tokens[last-2]
	prop.City = tokens[last-3]
	prop.Address = strings.Join(tokens[:last-3], " ")
}

// applyHDPInfo overlays the denser HDP payload fields.
func applyHDPInfo(prop *models.Property, home hdpHomeInfo) {
	prop.ID = home.ZPID
	prop.Baths = home.Bathrooms
	prop.Beds = home.Bedrooms
	prop.City = home.City
	prop.State = home.State
	prop.HomeType = home.HomeType
	prop.LivingArea = home.LivingArea
	if home.Price > 0 {
		prop.Price = int(home.Price)
	}
	prop.RentEstimate = int(home.RentZestimate)
	prop.MarketValueEstimate = int(home.Zestimate)
	if zip, err := strconv.Atoi(home.ZipCode); err == nil {
		prop.ZipCode = zip
	}
}

// applySparseInfo fills what it can from a record without HDP data.
func applySparseInfo(prop *models.Property, item rawListing) {
	if baths := coerceNumber(item.Baths, item.MinBaths); baths > 0 {
		prop.Baths = baths
	}
	if beds := coerceNumber(item.Beds, item.MinBeds); beds > 0 {
		prop.Beds = beds
	}
	if id := coerceNumber(item.ZPID); id > 0 {
		prop.ID = int64(id)
	}
}

// parsePrice converts provider price strings to an integer currency value.
// The provider is inconsistent: values may carry an 'M' suffix for millions,
// thousands separators, currency symbols, or decimal points.
func parsePrice(price string) int {
	if price == "" {
		return 0
	}
	local := strings.TrimSpace(price)
	if strings.HasSuffix(strings.ToUpper(local), "M") {
		local = local[:len(local)-1]
		if strings.Contains(local, ".") {
			// "1.2M" -> "1.2" + "00000" with the dot dropped -> 1200000.
			local = strings.Replace(local, ".", "", 1) + "00000"
		} else {
			local += "000000"
		}
	}
	var b strings.Builder
	for _, r := range local {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// coerceNumber converts the first non-empty numeric-looking value to a float.
// Provider fields arrive as JSON numbers or strings interchangeably.
func coerceNumber(values ...any) float64 {
	for _, v := range values {
		switch t := v.(type) {
		case float64:
			if t != 0 {
				return t
			}
		case string:
			if t == "" {
				continue
			}
			if f, err := strconv.ParseFloat(strings.ReplaceAll(t, ",", ""), 64); err == nil && f != 0 {
				return f
			}
		}
	}
	return 0
}
