package domain

// EngineVersion identifies the revision of the rate tables and composition
// rules. References and methodology are static per version, never computed
// from input.
const EngineVersion = "2.3.0"

// Methodology is the static description attached to every estimate.
const Methodology = "Point estimates derived from age-banded population base rates " +
	"(SART national summary data) adjusted by multiplicative factors for embryo day, " +
	"expansion stage, morphology grade, hatching status, and transfer type, stratified " +
	"by PGT-A result category. Estimates are population statistics, not individual " +
	"diagnoses, and do not replace consultation with a reproductive endocrinologist."

// References lists the citations backing the rate tables, in the order they
// are presented to the user.
func References() []string {
	return []string{
		"SART National Summary Report, final CSR live birth outcomes by oocyte age at retrieval.",
		"Gardner DK, Schoolcraft WB. In vitro culture of human blastocysts. Towards Reproductive Certainty (1999).",
		"Capalbo A, et al. Mosaic human preimplantation embryos and their developmental potential. Am J Hum Genet (2021).",
		"Viotti M, et al. Using outcome data from one thousand mosaic embryo transfers to formulate an embryo ranking system. Fertil Steril (2021).",
		"Irani M, et al. Blastocyst development rate influences implantation and live birth rates of similarly graded euploid blastocysts. Fertil Steril (2018).",
		"Du QY, et al. Blastocoele expansion degree predicts live birth after single blastocyst transfer. Fertil Steril (2016).",
		"Greco E, et al. Healthy babies after intrauterine transfer of mosaic aneuploid blastocysts. N Engl J Med (2015).",
		"Magnusson Å, et al. The association between the number of oocytes retrieved and cumulative live birth rate. Hum Reprod (2018).",
	}
}
