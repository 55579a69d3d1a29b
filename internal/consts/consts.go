package consts

const (
	CompanionWavelength = 0.9  // Signal wavelength the Newton start point is paired with (um)
	ReferenceTemp       = 25.0 // Calibration temperature of the KTP thermo-optic data (degC)
	MicronToNano        = 1e3  // um -> nm
)
