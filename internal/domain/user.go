package domain

import "time"

// Gender is the self-declared gender stored on a profile.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Valid reports whether g is one of the accepted values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// UserTypeUser is the only user type currently stored in base_users.user_type.
const UserTypeUser = "user"

// User represents an account together with its profile columns.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     *string
	PhoneNumber  *string
	HashedOTP    *string
	PasswordHash *string
	ImagePath    *string
	UserType     string
	RoleID       *int64
	LastLoginAt  *time.Time
	OTPCreatedAt *time.Time
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Profile Profile
}

// Profile holds the optional body metrics attached to a user.
type Profile struct {
	Age    *int
	Gender *Gender
	Height *float64
	Weight *float64
}

// ProfileUpdate carries the fields to change; nil fields are left untouched.
type ProfileUpdate struct {
	FullName    *string  `json:"full_name" validate:"omitempty,max=225"`
	PhoneNumber *string  `json:"phone_number" validate:"omitempty,max=20"`
	Age         *int     `json:"age" validate:"omitempty,min=1,max=150"`
	Gender      *Gender  `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Height      *float64 `json:"height" validate:"omitempty,gt=0"`
	Weight      *float64 `json:"weight" validate:"omitempty,gt=0"`
}

// NewProfile is the first, complete submission of a user's profile.
type NewProfile struct {
	FullName    string  `json:"full_name" validate:"required,max=225"`
	PhoneNumber string  `json:"phone_number" validate:"required,max=20"`
	Age         int     `json:"age" validate:"required,min=1,max=150"`
	Gender      Gender  `json:"gender" validate:"required,oneof=Male Female Other"`
	Height      float64 `json:"height" validate:"required,gt=0"`
	Weight      float64 `json:"weight" validate:"required,gt=0"`
}

// Update converts the submission into a ProfileUpdate touching every field.
func (p NewProfile) Update() ProfileUpdate {
	return ProfileUpdate{
		FullName:    &p.FullName,
		PhoneNumber: &p.PhoneNumber,
		Age:         &p.Age,
		Gender:      &p.Gender,
		Height:      &p.Height,
		Weight:      &p.Weight,
	}
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.PhoneNumber == nil && u.Age == nil &&
		u.Gender == nil && u.Height == nil && u.Weight == nil
}

// LoggedIn reports whether the user holds a login that started within ttl of now.
func (u *User) LoggedIn(now time.Time, ttl time.Duration) bool {
	return u.LastLoginAt != nil && !u.LastLoginAt.Add(ttl).Before(now)
}
