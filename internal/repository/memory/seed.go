package memory

import "github.com/Domenick1991/hotelbooking/internal/domain"

type seedRoom struct {
	number string
	kind   string
	rate   int64
}

type seedHotel struct {
	name    string
	address string
	rating  int
	city    string
	rooms   []seedRoom
}

var seedCountries = []domain.Country{
	{Name: "United States", Code: "US"},
	{Name: "France", Code: "FR"},
	{Name: "Japan", Code: "JP"},
	{Name: "Australia", Code: "AU"},
	{Name: "United Kingdom", Code: "GB"},
	{Name: "Germany", Code: "DE"},
	{Name: "Italy", Code: "IT"},
	{Name: "United Arab Emirates", Code: "AE"},
}

// city name -> country code
var seedCities = [][2]string{
	{"New York", "US"},
	{"Miami", "US"},
	{"Denver", "US"},
	{"Paris", "FR"},
	{"Tokyo", "JP"},
	{"Sydney", "AU"},
	{"London", "GB"},
	{"Berlin", "DE"},
	{"Rome", "IT"},
	{"Dubai", "AE"},
}

var seedHotels = []seedHotel{
	{"Grand Hotel", "123 Main Street", 5, "New York", []seedRoom{{"101", "Standard", 10000}, {"102", "Deluxe", 15000}, {"103", "Suite", 25000}}},
	{"Seaside Resort", "456 Beach Road", 4, "Miami", []seedRoom{{"201", "Standard", 12000}, {"202", "Deluxe", 18000}}},
	{"Mountain View Lodge", "789 Alpine Way", 4, "Denver", []seedRoom{{"301", "Standard", 9000}, {"302", "Deluxe", 14000}, {"303", "Suite", 22000}}},
	{"Parisian Elegance", "12 Rue de Rivoli", 5, "Paris", []seedRoom{{"401", "Standard", 15000}, {"402", "Deluxe", 25000}, {"403", "Suite", 40000}}},
	{"Tokyo Tower Hotel", "1-2-3 Minato-ku", 5, "Tokyo", []seedRoom{{"501", "Standard", 20000}, {"502", "Deluxe", 30000}, {"503", "Suite", 50000}}},
	{"Sydney Harbour View", "100 Circular Quay", 4, "Sydney", []seedRoom{{"601", "Standard", 18000}, {"602", "Deluxe", 28000}}},
	{"London Bridge Hotel", "1 Bridge Street", 4, "London", []seedRoom{{"701", "Standard", 16000}, {"702", "Deluxe", 24000}, {"703", "Suite", 35000}}},
	{"Berlin Central", "100 Friedrichstraße", 4, "Berlin", []seedRoom{{"801", "Standard", 11000}, {"802", "Deluxe", 17000}}},
	{"Rome Imperial", "Via del Corso 1", 5, "Rome", []seedRoom{{"901", "Standard", 13000}, {"902", "Deluxe", 20000}, {"903", "Suite", 30000}}},
	{"Dubai Skyline", "Sheikh Zayed Road", 5, "Dubai", []seedRoom{{"1001", "Standard", 25000}, {"1002", "Deluxe", 40000}, {"1003", "Suite", 60000}}},
}

// Seed loads the demo inventory unless the store already has countries.
// It mirrors the SQL seed migration.
func (s *Store) Seed() {
	s.mu.RLock()
	seeded := len(s.countries) > 0
	s.mu.RUnlock()
	if seeded {
		return
	}

	countryIDs := make(map[string]int64, len(seedCountries))
	for _, c := range seedCountries {
		countryIDs[c.Code] = s.AddCountry(c).ID
	}
	cityIDs := make(map[string]int64, len(seedCities))
	for _, c := range seedCities {
		cityIDs[c[0]] = s.AddCity(domain.City{Name: c[0], CountryID: countryIDs[c[1]]}).ID
	}
	for _, h := range seedHotels {
		hotel := s.AddHotel(domain.Hotel{Name: h.name, Address: h.address, Rating: h.rating, CityID: cityIDs[h.city]})
		for _, r := range h.rooms {
			s.AddRoom(domain.Room{
				HotelID:            hotel.ID,
				RoomNumber:         r.number,
				Type:               r.kind,
				PricePerNightCents: r.rate,
				Available:          true,
				Enabled:            true,
			})
		}
	}
}
