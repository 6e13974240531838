package domain

import "time"

type Country struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type City struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CountryID int64  `json:"country_id"`
}

type Hotel struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Rating  int    `json:"rating"`
	CityID  int64  `json:"city_id"`
}

// Room is a bookable unit. Available is a coarse hint kept for listing
// filters; conflicts are always decided from the bookings table.
type Room struct {
	ID                 int64     `json:"id"`
	HotelID            int64     `json:"hotel_id"`
	RoomNumber         string    `json:"room_number"`
	Type               string    `json:"type"`
	PricePerNightCents int64     `json:"price_per_night_cents"`
	Available          bool      `json:"available"`
	Enabled            bool      `json:"enabled"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HotelView is a hotel flattened with its city, country and rooms.
type HotelView struct {
	Hotel
	CityName    string `json:"city_name"`
	CountryName string `json:"country_name"`
	CountryCode string `json:"country_code"`
	Rooms       []Room `json:"rooms"`
}
