// Package dpe holds the fixed configuration of the ADEME "DPE logements
// existants" dataset: the selected column set, the prediction target,
// the leakage and metadata column lists, and the scope filters used by
// the preparation pipeline. Components receive these values through
// their own Config structs; nothing in this package is mutable.
package dpe

import "strings"

const (
	// BaseURL is the Data Fair API root.
	BaseURL = "https://data.ademe.fr/data-fair/api/v1"

	// DatasetID identifies the DPE existing-housing dataset.
	DatasetID = "dpe03existant"

	// SortColumn is the unique, totally ordered key used for cursor
	// pagination. The API resumes after the last value of this field.
	SortColumn = "numero_dpe"

	// MaxPageSize is the largest page the API accepts (size+skip cap).
	MaxPageSize = 10_000

	// TargetColumn is the prediction target: the A-G energy label.
	TargetColumn = "etiquette_dpe"

	// RegionColumn is the region identifier used for joint stratification.
	RegionColumn = "code_region_ban"

	// DepartmentColumn carries the department code used by the
	// geographic scope filter.
	DepartmentColumn = "code_departement_ban"

	// EnergyColumn is the primary-energy quantity that defines the label.
	EnergyColumn = "conso_5_usages_ep"

	// SizeColumn is the habitable surface, required for per-area figures.
	SizeColumn = "surface_habitable_logement"

	// PerAreaColumn is the per-square-meter primary-energy consumption.
	PerAreaColumn = "conso_5_usages_par_m2_ep"

	// PerAreaCeiling caps plausible per-area consumption. The DPE scale
	// runs from ~0 to ~800 kWh EP/m2/year.
	PerAreaCeiling = 1000.0
)

// DateFilter restricts fetches to DPEs updated in 2025, expressed in the
// Lucene syntax of the API's qs parameter. This is the wide variant
// (~674k rows); the narrow "established and updated in 2025" variant is
// too small for joint label x region stratification.
const DateFilter = "date_derniere_modification_dpe:[2025-01-01 TO 2025-12-31]"

// SelectedColumns is the full expected column set, in output order.
// Some names contain spaces; the API rejects those in the select
// parameter, so they are omitted from requests (see SelectableColumns)
// and simply absent from results.
var SelectedColumns = []string{
	"numero_dpe",
	"date_derniere_modification_dpe",
	"date_etablissement_dpe",
	"modele_dpe",
	"version_dpe",
	"methode_application_dpe",
	"etiquette_dpe",
	"etiquette_ges",
	"type_batiment",
	"annee_construction",
	"periode_construction",
	"type_installation_chauffage",
	"type_installation_ecs",
	"hauteur_sous_plafond",
	"nombre_niveau_logement",
	"surface_habitable_logement",
	"classe_inertie_batiment",
	"classe_altitude",
	"zone_climatique",
	"code_departement_ban",
	"code_region_ban",
	"identifiant_ban",
	"coordonnee_cartographique_x_ban",
	"coordonnee_cartographique_y_ban",
	"score_ban",
	"statut_geocodage",
	"code_postal_brut",
	"deperditions_enveloppe",
	"deperditions_ponts_thermiques",
	"deperditions_murs",
	"deperditions_planchers_hauts",
	"deperditions_planchers_bas",
	"deperditions_portes",
	"deperditions_baies_vitrees",
	"deperditions_renouvellement_air",
	"qualite_isolation_enveloppe",
	"qualite_isolation_menuiseries",
	"besoin_chauffage",
	"besoin_ecs",
	"besoin_refroidissement",
	"apport_interne_saison_chauffe",
	"apport_interne_saison_froide",
	"apport_solaire_saison_chauffe",
	"apport_solaire_saison_froide",
	"conso_5_usages_ep",
	"conso_5_usages_par_m2_ep",
	"conso_chauffage_ep",
	"conso_ecs_ep",
	"conso_refroidissement_ep",
	"conso_eclairage_ep",
	"conso_auxiliaires_ep",
	"conso_5 usages_ef",
	"conso_5 usages_par_m2_ef",
	"conso_chauffage_ef",
	"conso_ecs_ef",
	"conso_refroidissement_ef",
	"conso_eclairage_ef",
	"conso_auxiliaires_ef",
	"emission_ges_5_usages",
	"emission_ges_5_usages par_m2",
	"emission_ges_chauffage",
	"emission_ges_ecs",
	"emission_ges_refroidissement",
	"emission_ges_eclairage",
	"emission_ges_auxiliaires",
	"type_energie_n1",
	"conso_5 usages_ef_energie_n1",
	"conso_chauffage_ef_energie_n1",
	"conso_ecs_ef_energie_n1",
	"cout_total_5_usages_energie_n1",
	"cout_chauffage_energie_n1",
	"cout_ecs_energie_n1",
	"emission_ges_5_usages_energie_n1",
	"emission_ges_chauffage_energie_n1",
	"emission_ges_ecs_energie_n1",
	"cout_total_5_usages",
	"cout_chauffage",
	"cout_ecs",
	"cout_refroidissement",
	"cout_eclairage",
	"cout_auxiliaires",
	"type_energie_principale_chauffage",
	"type_energie_principale_ecs",
}

// MetaColumns are identifiers and audit metadata with no predictive value.
var MetaColumns = []string{
	"numero_dpe",
	"date_derniere_modification_dpe",
	"date_etablissement_dpe",
	"modele_dpe",
	"version_dpe",
	"methode_application_dpe",
	"identifiant_ban",
	"score_ban",
	"statut_geocodage",
}

// LeakyColumns are computed from the same energy/emissions balance as
// the target label and must never reach the feature set. The A-G label
// is determined by conso_5_usages_par_m2_ep and the per-area GES
// emissions; everything below is part of that balance or derived from
// it (final-energy figures, GES figures, the GES label, and energy
// costs deduced from consumption).
var LeakyColumns = []string{
	"conso_5_usages_ep",
	"conso_5_usages_par_m2_ep",
	"conso_chauffage_ep",
	"conso_ecs_ep",
	"conso_refroidissement_ep",
	"conso_eclairage_ep",
	"conso_auxiliaires_ep",
	"conso_5 usages_ef",
	"conso_5 usages_par_m2_ef",
	"conso_chauffage_ef",
	"conso_ecs_ef",
	"conso_refroidissement_ef",
	"conso_eclairage_ef",
	"conso_auxiliaires_ef",
	"emission_ges_5_usages",
	"emission_ges_5_usages par_m2",
	"emission_ges_chauffage",
	"emission_ges_ecs",
	"emission_ges_refroidissement",
	"emission_ges_eclairage",
	"emission_ges_auxiliaires",
	"etiquette_ges",
	"conso_5 usages_ef_energie_n1",
	"conso_chauffage_ef_energie_n1",
	"conso_ecs_ef_energie_n1",
	"emission_ges_5_usages_energie_n1",
	"emission_ges_chauffage_energie_n1",
	"emission_ges_ecs_energie_n1",
	"cout_total_5_usages_energie_n1",
	"cout_chauffage_energie_n1",
	"cout_ecs_energie_n1",
	"cout_total_5_usages",
	"cout_chauffage",
	"cout_ecs",
	"cout_refroidissement",
	"cout_eclairage",
	"cout_auxiliaires",
}

// OverseasDepartments are the department codes excluded by the
// metropolitan-France scope filter.
var OverseasDepartments = []string{"971", "972", "973", "974", "988"}

// SelectableColumns returns the columns that can be requested through
// the select query parameter. The API rejects names containing spaces;
// those columns are fetched implicitly or not at all and re-filtered
// client-side.
func SelectableColumns() []string {
	out := make([]string, 0, len(SelectedColumns))
	for _, c := range SelectedColumns {
		if !strings.Contains(c, " ") {
			out = append(out, c)
		}
	}
	return out
}
