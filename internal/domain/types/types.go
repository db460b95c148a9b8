package types

// Enum для статуса заявки на эвакуацию
type RequestStatus string

const (
	StatusPending            RequestStatus = "PENDING"
	StatusBroadcast          RequestStatus = "BROADCAST"
	StatusAccepted           RequestStatus = "ACCEPTED"
	StatusArrived            RequestStatus = "ARRIVED"
	StatusInTransit          RequestStatus = "IN_TRANSIT"
	StatusDestinationReached RequestStatus = "DESTINATION_REACHED"
	StatusCompleted          RequestStatus = "COMPLETED"
	StatusCancelled          RequestStatus = "CANCELLED"
)

func (s RequestStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible from s.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ActiveStatuses are the statuses counted by the scarcity modifier.
var ActiveStatuses = []RequestStatus{StatusPending, StatusAccepted}

// Enum для типа эвакуатора
type TowType string

const (
	TowFlatbed TowType = "FLATBED"
	TowHook    TowType = "HOOK"
)

func (t TowType) String() string {
	return string(t)
}

// IsValid reports whether t is a known tow type.
func (t TowType) IsValid() bool {
	return t == TowFlatbed || t == TowHook
}

// Enum для категории буксируемого транспорта
type VehicleCategory string

const (
	VehicleSedan     VehicleCategory = "SEDAN"
	VehicleHatchback VehicleCategory = "HATCHBACK"
	VehicleSUV       VehicleCategory = "SUV"
	VehicleBakkie    VehicleCategory = "BAKKIE"
	VehicleVan       VehicleCategory = "VAN"
	VehicleMotorbike VehicleCategory = "MOTORBIKE"
	VehicleOther     VehicleCategory = "OTHER"
)

func (c VehicleCategory) String() string {
	return string(c)
}

// IsValid reports whether c is a known vehicle category.
func (c VehicleCategory) IsValid() bool {
	switch c {
	case VehicleSedan, VehicleHatchback, VehicleSUV, VehicleBakkie, VehicleVan, VehicleMotorbike, VehicleOther:
		return true
	default:
		return false
	}
}

// Enum для погодных условий в точке подачи
type WeatherCondition string

const (
	WeatherClear  WeatherCondition = "CLEAR"
	WeatherCloudy WeatherCondition = "CLOUDY"
	WeatherRain   WeatherCondition = "RAIN"
	WeatherStorm  WeatherCondition = "STORM"
	WeatherSnow   WeatherCondition = "SNOW"
)

func (w WeatherCondition) String() string {
	return string(w)
}

// IsAdverse reports whether the condition bumps the weather fare modifier.
func (w WeatherCondition) IsAdverse() bool {
	return w == WeatherRain || w == WeatherStorm || w == WeatherSnow
}

// Enum для роли пользователя
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RoleUser   UserRole = "USER"
	RoleDriver UserRole = "DRIVER"
	RoleAdmin  UserRole = "ADMIN"
)

// Enum для типов сущностей с координатами
type EntityType string

const (
	Driver EntityType = "driver"
	User   EntityType = "user"
)
