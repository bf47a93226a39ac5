package models

import "time"

// Station is immutable reference data identified externally by its code
type Station struct {
	ID    int64  `json:"station_id" db:"station_id"`
	Code  string `json:"station_code" db:"station_code"`
	Name  string `json:"station_name" db:"station_name"`
	City  string `json:"city" db:"city"`
	State string `json:"state" db:"state"`
}

// Train is immutable reference data. RunningDays has 7 positions starting at Sunday;
// '-' marks a day the train does not run.
type Train struct {
	ID                   int64  `json:"train_id" db:"train_id"`
	Number               string `json:"train_number" db:"train_number"`
	Name                 string `json:"train_name" db:"train_name"`
	Type                 string `json:"train_type" db:"train_type"`
	RunningDays          string `json:"running_days" db:"running_days"`
	SourceStationID      int64  `json:"source_station_id" db:"source_station_id"`
	DestinationStationID int64  `json:"destination_station_id" db:"destination_station_id"`
	SourceCode           string `json:"source_code,omitempty" db:"source_code"`
	SourceName           string `json:"source_name,omitempty" db:"source_name"`
	DestinationCode      string `json:"destination_code,omitempty" db:"destination_code"`
	DestinationName      string `json:"destination_name,omitempty" db:"destination_name"`
}

// RunsOn reports whether the train runs on the weekday of the given date
func (t *Train) RunsOn(date time.Time) bool {
	if len(t.RunningDays) != 7 {
		return true
	}
	return t.RunningDays[int(date.Weekday())] != '-'
}

// RouteStop is one ordered stop on a train's route
type RouteStop struct {
	TrainID       int64   `json:"train_id" db:"train_id"`
	StationID     int64   `json:"station_id" db:"station_id"`
	StopOrder     int     `json:"stop_order" db:"stop_order"`
	ArrivalTime   *string `json:"arrival_time,omitempty" db:"arrival_time"`
	DepartureTime *string `json:"departure_time,omitempty" db:"departure_time"`
	DistanceKm    float64 `json:"distance_km" db:"distance_km"`
	StationCode   string  `json:"station_code,omitempty" db:"station_code"`
	StationName   string  `json:"station_name,omitempty" db:"station_name"`
	City          string  `json:"city,omitempty" db:"city"`
}

// Coach is the static capacity source of truth for a (train, coach class)
type Coach struct {
	ID          int64   `json:"coach_id" db:"coach_id"`
	TrainID     int64   `json:"train_id" db:"train_id"`
	CoachClass  string  `json:"coach_type" db:"coach_type"`
	CoachNumber string  `json:"coach_number" db:"coach_number"`
	TotalSeats  int     `json:"total_seats" db:"total_seats"`
	BaseFare    float64 `json:"base_fare" db:"base_fare"`
}

// TrainDetails is the response for a single train lookup
type TrainDetails struct {
	Train   *Train      `json:"train"`
	Stops   []RouteStop `json:"stops"`
	Coaches []Coach     `json:"coaches"`
}

// TrainSearchResult is one train connecting two stations in order
type TrainSearchResult struct {
	TrainID       int64               `json:"train_id" db:"train_id"`
	TrainNumber   string              `json:"train_number" db:"train_number"`
	TrainName     string              `json:"train_name" db:"train_name"`
	TrainType     string              `json:"train_type" db:"train_type"`
	RunningDays   string              `json:"running_days" db:"running_days"`
	FromCode      string              `json:"from_code" db:"from_code"`
	FromStation   string              `json:"from_station" db:"from_station"`
	ToCode        string              `json:"to_code" db:"to_code"`
	ToStation     string              `json:"to_station" db:"to_station"`
	DepartureTime *string             `json:"departure_time,omitempty" db:"departure_time"`
	ArrivalTime   *string             `json:"arrival_time,omitempty" db:"arrival_time"`
	DistanceKm    float64             `json:"distance_km" db:"distance_km"`
	Classes       []ClassAvailability `json:"classes" db:"-"`
}

// ClassAvailability is the seat picture for one coach class on a date
type ClassAvailability struct {
	CoachClass     string  `json:"coach_type" db:"coach_type"`
	AvailableSeats int     `json:"available_seats" db:"available_seats"`
	TotalSeats     int     `json:"total_seats" db:"total_seats"`
	BaseFare       float64 `json:"base_fare" db:"base_fare"`
}

// FareQuote is the distance-prorated fare for a journey segment
type FareQuote struct {
	TrainID    int64   `json:"train_id"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	CoachClass string  `json:"coach_type"`
	DistanceKm float64 `json:"distance"`
	BaseFare   float64 `json:"base_fare"`
	Fare       float64 `json:"fare"`
}
