// internal/domain/models/staff.go
package models

// Condicion is a disability/condition category a waiter may be assigned.
type Condicion struct {
	Base
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
}

func (c Condicion) Label() string { return c.Nombre }

// Mesero is a member of the waiting staff.
//
// The backend returns the condition nested; writes send condicionId.
type Mesero struct {
	Base
	Nombre       string     `json:"nombre"`
	Edad         int        `json:"edad"`
	CondicionID  *int64     `json:"condicionId,omitempty"`
	Condicion    *Condicion `json:"condicion,omitempty"`
	Presentacion string     `json:"presentacion"`
	Foto         string     `json:"foto"`
}

func (m Mesero) Label() string { return m.Nombre }

// CondicionNombre returns the nested condition name, if any.
func (m Mesero) CondicionNombre() string {
	if m.Condicion == nil {
		return ""
	}
	return m.Condicion.Nombre
}

// Candidato is a job applicant.
type Candidato struct {
	Base
	Nombre     string `json:"nombre"`
	Email      string `json:"email"`
	Telefono   string `json:"telefono"`
	Curriculum string `json:"curriculum"`
}

func (c Candidato) Label() string { return c.Nombre }

// Rol is a back-office user role.
type Rol struct {
	ID     ID     `json:"id"`
	Nombre string `json:"nombre"`
}

// Usuario is a back-office user account held by the backend.
// Password is write-only and omitted when empty.
type Usuario struct {
	Base
	Nombre         string `json:"nombre"`
	Apellido       string `json:"apellido"`
	Email          string `json:"email"`
	Password       string `json:"password,omitempty"`
	RolID          *int64 `json:"rolId,omitempty"`
	Rol            *Rol   `json:"rol,omitempty"`
	NumeroEmpleado *int64 `json:"numeroEmpleado"`
	Area           string `json:"area"`
	Telefono       string `json:"telefono"`
	FechaIngreso   string `json:"fechaIngreso"`
	Foto           string `json:"foto"`
}

func (u Usuario) Label() string {
	if u.Apellido == "" {
		return u.Nombre
	}
	return u.Nombre + " " + u.Apellido
}

// RolNombre returns the nested role name, if any.
func (u Usuario) RolNombre() string {
	if u.Rol == nil {
		return ""
	}
	return u.Rol.Nombre
}
