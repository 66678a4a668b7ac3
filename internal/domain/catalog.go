package domain

// CategoryFlags classifies a spectral channel. Exactly one of the band
// flags is set for instrument channels; Composite marks derived products
// that have no single band number.
type CategoryFlags struct {
	Visible      bool
	NearInfrared bool
	Infrared     bool
	WaterVapor   bool
	Composite    bool
}

// ChannelSpec describes one ABI spectral band or a derived composite.
// Instrument channels carry a band number 1-16 (12 is reserved and never
// declared); composites have a nil Number.
type ChannelSpec struct {
	ID          string
	Number      *int
	DisplayName string
	Wavelength  string
	Description string
	Flags       CategoryFlags
}

// IsComposite reports whether this channel is a derived composite product.
func (c ChannelSpec) IsComposite() bool {
	return c.Flags.Composite
}

func band(n int) *int { return &n }

// channels is the static catalog, built once at init. Lookup maps below
// are never mutated after init, so unsynchronized concurrent reads are safe.
var channels = []ChannelSpec{
	{ID: "C01", Number: band(1), DisplayName: "Blue", Wavelength: "0.47 um", Description: "Daytime aerosol over land, coastal water mapping", Flags: CategoryFlags{Visible: true}},
	{ID: "C02", Number: band(2), DisplayName: "Red", Wavelength: "0.64 um", Description: "Daytime clouds, fog, insolation, winds", Flags: CategoryFlags{Visible: true}},
	{ID: "C03", Number: band(3), DisplayName: "Veggie", Wavelength: "0.86 um", Description: "Daytime vegetation, burn scar, aerosol over water", Flags: CategoryFlags{NearInfrared: true}},
	{ID: "C04", Number: band(4), DisplayName: "Cirrus", Wavelength: "1.37 um", Description: "Daytime cirrus cloud detection", Flags: CategoryFlags{NearInfrared: true}},
	{ID: "C05", Number: band(5), DisplayName: "Snow/Ice", Wavelength: "1.6 um", Description: "Daytime cloud-top phase and particle size, snow", Flags: CategoryFlags{NearInfrared: true}},
	{ID: "C06", Number: band(6), DisplayName: "Cloud Particle Size", Wavelength: "2.2 um", Description: "Daytime land, cloud properties, particle size", Flags: CategoryFlags{NearInfrared: true}},
	{ID: "C07", Number: band(7), DisplayName: "Shortwave Window", Wavelength: "3.9 um", Description: "Fog, stratus, fire hotspots, volcanism", Flags: CategoryFlags{Infrared: true}},
	{ID: "C08", Number: band(8), DisplayName: "Upper-Level Water Vapor", Wavelength: "6.2 um", Description: "Upper-tropospheric moisture and jet streams", Flags: CategoryFlags{WaterVapor: true}},
	{ID: "C09", Number: band(9), DisplayName: "Mid-Level Water Vapor", Wavelength: "6.9 um", Description: "Mid-tropospheric moisture and circulation", Flags: CategoryFlags{WaterVapor: true}},
	{ID: "C10", Number: band(10), DisplayName: "Lower-Level Water Vapor", Wavelength: "7.3 um", Description: "Lower-tropospheric moisture, SO2 detection", Flags: CategoryFlags{WaterVapor: true}},
	{ID: "C11", Number: band(11), DisplayName: "Cloud-Top Phase", Wavelength: "8.4 um", Description: "Cloud-top phase, dust, SO2", Flags: CategoryFlags{Infrared: true}},
	{ID: "C13", Number: band(13), DisplayName: "Clean IR Longwave", Wavelength: "10.3 um", Description: "Clouds day and night, precipitation estimates", Flags: CategoryFlags{Infrared: true}},
	{ID: "C14", Number: band(14), DisplayName: "IR Longwave", Wavelength: "11.2 um", Description: "Clouds, sea surface temperature, rainfall", Flags: CategoryFlags{Infrared: true}},
	{ID: "C15", Number: band(15), DisplayName: "Dirty IR Longwave", Wavelength: "12.3 um", Description: "Clouds, low-level moisture, volcanic ash", Flags: CategoryFlags{Infrared: true}},
	{ID: "C16", Number: band(16), DisplayName: "CO2 Longwave", Wavelength: "13.3 um", Description: "Air temperature, cloud heights", Flags: CategoryFlags{Infrared: true}},

	{ID: "GEOCOLOR", Number: nil, DisplayName: "GeoColor", Wavelength: "multispectral", Description: "True-color daytime, multispectral IR at night", Flags: CategoryFlags{Composite: true}},
	{ID: "AIRMASS", Number: nil, DisplayName: "Airmass", Wavelength: "multispectral", Description: "RGB composite for synoptic-scale air masses", Flags: CategoryFlags{Composite: true}},
	{ID: "SANDWICH", Number: nil, DisplayName: "Sandwich", Wavelength: "multispectral", Description: "Visible texture blended with IR color", Flags: CategoryFlags{Composite: true}},
}

var (
	channelsByNumber = make(map[int]ChannelSpec)
	channelsByID     = make(map[string]ChannelSpec)
)

func init() {
	for _, c := range channels {
		channelsByID[c.ID] = c
		if c.Number != nil {
			channelsByNumber[*c.Number] = c
		}
	}
}

// LookupChannel returns the spec for an ABI band number. Unknown numbers
// (including the reserved band 12) are a valid outcome, not an error.
func LookupChannel(number int) (ChannelSpec, bool) {
	c, ok := channelsByNumber[number]
	return c, ok
}

// ChannelByID returns the spec for a channel identifier such as "C13" or
// "GEOCOLOR".
func ChannelByID(id string) (ChannelSpec, bool) {
	c, ok := channelsByID[id]
	return c, ok
}

// Channels returns every declared channel spec in catalog order.
func Channels() []ChannelSpec {
	out := make([]ChannelSpec, len(channels))
	copy(out, channels)
	return out
}
