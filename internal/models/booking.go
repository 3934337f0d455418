package models

type BookingStatus string

const (
	BookingStatusSuccess            BookingStatus = "Success"
	BookingStatusCanceledByCustomer BookingStatus = "Canceled_Rides_by_Customer"
	BookingStatusCanceledByDriver   BookingStatus = "Canceled_Rides_by_Driver"
	BookingStatusIncomplete         BookingStatus = "Incomplete"
	BookingStatusDriverNotFound     BookingStatus = "Driver_Not_Found"
)

// Booking is one ride-booking event from the source dataset. Rows are
// written once by the loader and never updated.
type Booking struct {
	BookingID               string   `json:"bookingId" gorm:"column:booking_id;primaryKey"`
	Date                    string   `json:"date" gorm:"column:date;index"`
	Time                    string   `json:"time" gorm:"column:time"`
	CustomerID              string   `json:"customerId" gorm:"column:customer_id;index"`
	VehicleType             string   `json:"vehicleType" gorm:"column:vehicle_type;index"`
	PickupLocation          string   `json:"pickupLocation" gorm:"column:pickup_location"`
	DropLocation            string   `json:"dropLocation" gorm:"column:drop_location"`
	BookingStatus           string   `json:"bookingStatus" gorm:"column:booking_status;index"`
	CanceledRidesByCustomer *string  `json:"canceledRidesByCustomer" gorm:"column:canceled_rides_by_customer"`
	CanceledRidesByDriver   *string  `json:"canceledRidesByDriver" gorm:"column:canceled_rides_by_driver"`
	IncompleteRides         *string  `json:"incompleteRides" gorm:"column:incomplete_rides"`
	IncompleteRidesReason   *string  `json:"incompleteRidesReason" gorm:"column:incomplete_rides_reason"`
	BookingValue            float64  `json:"bookingValue" gorm:"column:booking_value"`
	PaymentMethod           *string  `json:"paymentMethod" gorm:"column:payment_method;index"`
	RideDistance            float64  `json:"rideDistance" gorm:"column:ride_distance"`
	DriverRatings           *float64 `json:"driverRatings" gorm:"column:driver_ratings"`
	CustomerRating          *float64 `json:"customerRating" gorm:"column:customer_rating"`
}

func (Booking) TableName() string {
	return "bookings"
}

// Columns lists the dataset columns in schema order. The loader validates
// input headers against this list and the query layer uses it as the
// allow-list of queryable columns.
func Columns() []string {
	return []string{
		"booking_id",
		"date",
		"time",
		"customer_id",
		"vehicle_type",
		"pickup_location",
		"drop_location",
		"booking_status",
		"canceled_rides_by_customer",
		"canceled_rides_by_driver",
		"incomplete_rides",
		"incomplete_rides_reason",
		"booking_value",
		"payment_method",
		"ride_distance",
		"driver_ratings",
		"customer_rating",
	}
}
