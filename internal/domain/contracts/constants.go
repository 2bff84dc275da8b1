package contracts

const (
	TypeFullTime      = "Full-time"
	TypePartTime      = "Part-time"
	TypeIntern        = "Intern"
	TypeTemporary     = "Temporary Staff"
	TypeContractBased = "Contract Based"
)

var ContractTypes = []string{
	TypeFullTime,
	TypePartTime,
	TypeIntern,
	TypeTemporary,
	TypeContractBased,
}

func ValidContractType(value string) bool {
	for _, candidate := range ContractTypes {
		if candidate == value {
			return true
		}
	}
	return false
}
