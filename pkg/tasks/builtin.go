package tasks

// DefaultTaskName is the baseline "segment everything" task used when the
// caller selects no task explicitly.
const DefaultTaskName = "total"

// builtinTasks returns the static descriptor table. The class maps mirror
// the label numbering of the external tool; label values identify voxels in
// multi-label output and file names in per-structure output.
func builtinTasks() []*Task {
	return []*Task{
		{
			Name:               "total",
			Title:              "Total (104+ structures, CT)",
			SupportsFast:       true,
			SupportsFastest:    true,
			SupportsMultiLabel: true,
			Modalities:         []Modality{ModalityCT},
			ClassMap:           totalClassMap,
		},
		{
			Name:               "total_mr",
			Title:              "Total (MR)",
			SupportsFast:       true,
			SupportsMultiLabel: true,
			Modalities:         []Modality{ModalityMR},
			ClassMap:           totalMRClassMap,
		},
		{
			Name:                    "lung_vessels",
			Title:                   "Lung vessels and airways",
			RequiresPreSegmentation: true,
			Modalities:              []Modality{ModalityCT},
			ClassMap: map[int]string{
				1: "lung_vessels",
				2: "lung_trachea_bronchia",
			},
		},
		{
			Name:               "body",
			Title:              "Body regions",
			SupportsFast:       true,
			SupportsMultiLabel: true,
			Modalities:         []Modality{ModalityCT},
			ClassMap: map[int]string{
				1: "body_trunc",
				2: "body_extremities",
			},
		},
		{
			Name:       "cerebral_bleed",
			Title:      "Intracerebral hemorrhage",
			Modalities: []Modality{ModalityCT},
			ClassMap: map[int]string{
				1: "intracerebral_hemorrhage",
			},
		},
		{
			Name:       "hip_implant",
			Title:      "Hip implant",
			Modalities: []Modality{ModalityCT},
			ClassMap: map[int]string{
				1: "hip_implant",
			},
		},
		{
			Name:       "coronary_arteries",
			Title:      "Coronary arteries",
			Modalities: []Modality{ModalityCT},
			ClassMap: map[int]string{
				1: "coronary_arteries",
			},
		},
		{
			Name:                    "pleural_pericard_effusion",
			Title:                   "Pleural and pericardial effusion",
			RequiresPreSegmentation: true,
			Modalities:              []Modality{ModalityCT},
			ClassMap: map[int]string{
				1: "pleural_effusion",
				2: "pericardial_effusion",
			},
		},
		{
			Name:               "heartchambers_highres",
			Title:              "Heart chambers (high resolution)",
			SupportsMultiLabel: true,
			RequiresLicense:    true,
			Modalities:         []Modality{ModalityCT},
			ClassMap: map[int]string{
				1: "heart_myocardium",
				2: "heart_atrium_left",
				3: "heart_ventricle_left",
				4: "heart_atrium_right",
				5: "heart_ventricle_right",
				6: "aorta",
				7: "pulmonary_artery",
			},
		},
		{
			Name:               "tissue_types",
			Title:              "Tissue types (fat, muscle)",
			SupportsMultiLabel: true,
			RequiresLicense:    true,
			Modalities:         []Modality{ModalityCT},
			ClassMap: map[int]string{
				1: "subcutaneous_fat",
				2: "torso_fat",
				3: "skeletal_muscle",
			},
		},
		{
			Name:               "vertebrae_body",
			Title:              "Vertebrae bodies",
			SupportsMultiLabel: true,
			RequiresLicense:    true,
			Modalities:         []Modality{ModalityCT},
			ClassMap: map[int]string{
				1: "vertebrae_body",
			},
		},
	}
}

// totalClassMap is the label numbering of the baseline CT task.
var totalClassMap = map[int]string{
	1:   "spleen",
	2:   "kidney_right",
	3:   "kidney_left",
	4:   "gallbladder",
	5:   "liver",
	6:   "stomach",
	7:   "pancreas",
	8:   "adrenal_gland_right",
	9:   "adrenal_gland_left",
	10:  "lung_upper_lobe_left",
	11:  "lung_lower_lobe_left",
	12:  "lung_upper_lobe_right",
	13:  "lung_middle_lobe_right",
	14:  "lung_lower_lobe_right",
	15:  "esophagus",
	16:  "trachea",
	17:  "thyroid_gland",
	18:  "small_bowel",
	19:  "duodenum",
	20:  "colon",
	21:  "urinary_bladder",
	22:  "prostate",
	23:  "kidney_cyst_left",
	24:  "kidney_cyst_right",
	25:  "sacrum",
	26:  "vertebrae_S1",
	27:  "vertebrae_L5",
	28:  "vertebrae_L4",
	29:  "vertebrae_L3",
	30:  "vertebrae_L2",
	31:  "vertebrae_L1",
	32:  "vertebrae_T12",
	33:  "vertebrae_T11",
	34:  "vertebrae_T10",
	35:  "vertebrae_T9",
	36:  "vertebrae_T8",
	37:  "vertebrae_T7",
	38:  "vertebrae_T6",
	39:  "vertebrae_T5",
	40:  "vertebrae_T4",
	41:  "vertebrae_T3",
	42:  "vertebrae_T2",
	43:  "vertebrae_T1",
	44:  "vertebrae_C7",
	45:  "vertebrae_C6",
	46:  "vertebrae_C5",
	47:  "vertebrae_C4",
	48:  "vertebrae_C3",
	49:  "vertebrae_C2",
	50:  "vertebrae_C1",
	51:  "heart",
	52:  "aorta",
	53:  "pulmonary_vein",
	54:  "brachiocephalic_trunk",
	55:  "subclavian_artery_right",
	56:  "subclavian_artery_left",
	57:  "common_carotid_artery_right",
	58:  "common_carotid_artery_left",
	59:  "brachiocephalic_vein_left",
	60:  "brachiocephalic_vein_right",
	61:  "atrial_appendage_left",
	62:  "superior_vena_cava",
	63:  "inferior_vena_cava",
	64:  "portal_vein_and_splenic_vein",
	65:  "iliac_artery_left",
	66:  "iliac_artery_right",
	67:  "iliac_vena_left",
	68:  "iliac_vena_right",
	69:  "humerus_left",
	70:  "humerus_right",
	71:  "scapula_left",
	72:  "scapula_right",
	73:  "clavicula_left",
	74:  "clavicula_right",
	75:  "femur_left",
	76:  "femur_right",
	77:  "hip_left",
	78:  "hip_right",
	79:  "spinal_cord",
	80:  "gluteus_maximus_left",
	81:  "gluteus_maximus_right",
	82:  "gluteus_medius_left",
	83:  "gluteus_medius_right",
	84:  "gluteus_minimus_left",
	85:  "gluteus_minimus_right",
	86:  "autochthon_left",
	87:  "autochthon_right",
	88:  "iliopsoas_left",
	89:  "iliopsoas_right",
	90:  "brain",
	91:  "skull",
	92:  "rib_left_1",
	93:  "rib_left_2",
	94:  "rib_left_3",
	95:  "rib_left_4",
	96:  "rib_left_5",
	97:  "rib_left_6",
	98:  "rib_left_7",
	99:  "rib_left_8",
	100: "rib_left_9",
	101: "rib_left_10",
	102: "rib_left_11",
	103: "rib_left_12",
	104: "rib_right_1",
	105: "rib_right_2",
	106: "rib_right_3",
	107: "rib_right_4",
	108: "rib_right_5",
	109: "rib_right_6",
	110: "rib_right_7",
	111: "rib_right_8",
	112: "rib_right_9",
	113: "rib_right_10",
	114: "rib_right_11",
	115: "rib_right_12",
	116: "sternum",
	117: "costal_cartilages",
}

// totalMRClassMap is the label numbering of the baseline MR task. MR models
// cover a reduced structure set compared to CT.
var totalMRClassMap = map[int]string{
	1:  "spleen",
	2:  "kidney_right",
	3:  "kidney_left",
	4:  "gallbladder",
	5:  "liver",
	6:  "stomach",
	7:  "pancreas",
	8:  "adrenal_gland_right",
	9:  "adrenal_gland_left",
	10: "lung_left",
	11: "lung_right",
	12: "esophagus",
	13: "small_bowel",
	14: "duodenum",
	15: "colon",
	16: "urinary_bladder",
	17: "prostate",
	18: "sacrum",
	19: "vertebrae",
	20: "intervertebral_discs",
	21: "spinal_cord",
	22: "heart",
	23: "aorta",
	24: "inferior_vena_cava",
	25: "portal_vein_and_splenic_vein",
	26: "iliac_artery_left",
	27: "iliac_artery_right",
	28: "iliac_vena_left",
	29: "iliac_vena_right",
	30: "humerus_left",
	31: "humerus_right",
	32: "femur_left",
	33: "femur_right",
	34: "hip_left",
	35: "hip_right",
	36: "gluteus_maximus_left",
	37: "gluteus_maximus_right",
	38: "gluteus_medius_left",
	39: "gluteus_medius_right",
	40: "gluteus_minimus_left",
	41: "gluteus_minimus_right",
	42: "autochthon_left",
	43: "autochthon_right",
	44: "iliopsoas_left",
	45: "iliopsoas_right",
	46: "brain",
}
