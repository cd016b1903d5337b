// Package profile manages user profiles, the immutable role assignment
// created with them, and the account lifecycle (sign-up, sign-in, OTP).
package profile

import (
	"time"

	"github.com/google/uuid"
)

// Roles assignable at account creation. A role never changes afterwards.
const (
	RoleVillager = "villager"
	RoleDoctor   = "doctor"
)

// Profile is one row per identity. Villagers fill the village/age fields,
// doctors the hospital/specialization fields; fields foreign to the owner's
// role are accepted on input and ignored.
type Profile struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`

	// Villager fields.
	Village string `json:"village,omitempty"`
	Age     *int   `json:"age,omitempty"`

	// Doctor fields.
	HospitalName    string   `json:"hospital_name,omitempty"`
	HospitalAddress string   `json:"hospital_address,omitempty"`
	HospitalContact string   `json:"hospital_contact,omitempty"`
	Specialization  string   `json:"specialization,omitempty"`
	ConsultationFee *float64 `json:"consultation_fee,omitempty"`
	Available       *bool    `json:"available,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleAssignment binds a user to its role. Immutable after creation.
type RoleAssignment struct {
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Patch carries a partial profile update. Nil fields are left untouched.
type Patch struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`

	Village *string `json:"village"`
	Age     *int    `json:"age"`

	HospitalName    *string  `json:"hospital_name"`
	HospitalAddress *string  `json:"hospital_address"`
	HospitalContact *string  `json:"hospital_contact"`
	Specialization  *string  `json:"specialization"`
	ConsultationFee *float64 `json:"consultation_fee"`
	Available       *bool    `json:"available"`
}

// apply merges the patch into p, honoring the owner's role: fields that do
// not belong to the role are ignored rather than rejected.
func (patch Patch) apply(p *Profile, role string) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Phone != nil {
		p.Phone = *patch.Phone
	}

	if role == RoleVillager {
		if patch.Village != nil {
			p.Village = *patch.Village
		}
		if patch.Age != nil {
			p.Age = patch.Age
		}
	}

	if role == RoleDoctor {
		if patch.HospitalName != nil {
			p.HospitalName = *patch.HospitalName
		}
		if patch.HospitalAddress != nil {
			p.HospitalAddress = *patch.HospitalAddress
		}
		if patch.HospitalContact != nil {
			p.HospitalContact = *patch.HospitalContact
		}
		if patch.Specialization != nil {
			p.Specialization = *patch.Specialization
		}
		if patch.ConsultationFee != nil {
			p.ConsultationFee = patch.ConsultationFee
		}
		if patch.Available != nil {
			p.Available = patch.Available
		}
	}
}
