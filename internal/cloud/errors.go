package cloud

import "errors"

// Ошибки AWS-обработчиков.
var (
	// ErrNoDefaultVPC — в регионе нет default VPC.
	ErrNoDefaultVPC = errors.New("no default vpc in region")

	// ErrUnexpectedVPCCount — default VPC в регионе больше одного.
	ErrUnexpectedVPCCount = errors.New("unexpected default vpc count")

	// ErrRegionRequired — не указан регион.
	ErrRegionRequired = errors.New("region is required")
)
