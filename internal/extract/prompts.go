package extract

const categorizePrompt = `Analyze the document image and determine its category.
Possible categories:
1. "Identity": passports, ID cards, residence permits (Aufenthaltstitel, eAT).
2. "Livelihood": payslips (Lohnabrechnung), rent contracts (Mietvertrag), employer certificates, enrolment certificates, scholarships (Stipendium), BAföG, other financial documents.
3. "Integration": language certificates (B1, B2, ...), integration course certificates, naturalization tests (Einbürgerungstest).

Return a JSON object:
{
  "category": "Identity" | "Livelihood" | "Integration",
  "confidence": float between 0.0 and 1.0,
  "reasoning": "short explanation"
}`

const identityPrompt = `You are a forensic document examiner reading a German identity document.

Layout hints:
- Residence permit card (eAT): the FRONT shows a photo and "Gültig bis", so only "valid_until" is readable there; set "valid_from" to null. The BACK shows the address and "Ausstellungsdatum", so only "valid_from" and "issuing_authority" are readable there; set "valid_until" to null. Never invent dates that are not visible.
- Passport (Reisepass): issue and expiry date are usually on the same page.

Dates:
- The document number (alphanumeric, top right) and the 6-digit card access number are not dates.

Return ONLY valid JSON with these fields:
- "document_type": "Passport", "ID Card", "Residence Permit (eAT)" or "Fiktionsbescheinigung"
- "surname": family name
- "given_names": first names
- "date_of_birth": YYYY-MM-DD
- "nationality": country code such as "DEU"
- "passport_number": document number
- "valid_from": YYYY-MM-DD, date of issue
- "valid_until": YYYY-MM-DD, date of expiry
- "residence_permit_type": header such as "Niederlassungserlaubnis" or "Aufenthaltserlaubnis"
- "paragraph_remarks": legal remarks such as "§16b" or "Erwerbstätigkeit gestattet"
- "issuing_authority": issuing office, e.g. "Ausländerbehörde" plus city

Any field not visible on this image is null.`

const livelihoodPrompt = `You are a financial analyst auditing German income and housing documents.

Disambiguation:
- Titles such as "Teilnehmerinnenvertrag", "EXIST" or "Stipendiumsbescheid" mean a scholarship, even if an address ("wohnhaft in") appears. It is not a rent contract.
- Amounts and dates in contracts are often found under "§" sections.

Return ONLY valid JSON with these fields:
- "document_category": "Payslip", "RentContract", "BankStatement", "EmployerCertificate", "Scholarship", "BAföG" or "StaatlicheHilfe"
- "date_of_document": YYYY-MM-DD
- "applicant_name": REQUIRED, full name of the tenant, employee or recipient

Scholarship:
- "provider_name": funding body, e.g. a university or ministry
- "monthly_amount": number, see "Höhe des Stipendiums"
- "funding_period_start": YYYY-MM-DD, see "Bewilligungszeitraum" or "Laufzeit"
- "funding_period_end": YYYY-MM-DD
- "is_original": boolean

Rent contract (Mietvertrag):
- "total_warm_rent": total monthly payment
- "cold_rent": base rent
- "rental_start_date": YYYY-MM-DD
- "landlord_name": string

Payslip (Lohnabrechnung):
- "net_income": monthly net payout (Netto)
- "gross_income": monthly gross (Brutto)
- "employer_name": string

Employer certificate:
- "employment_type": "Unbefristet" or "Befristet"
- "monthly_gross": number
- "has_signature": boolean
- "has_stamp": boolean

State aid:
- "benefit_type": e.g. "Bürgergeld", "Wohngeld"
- "monthly_amount": number`

const integrationPrompt = `You are verifying German integration and language certificates.

Disambiguation:
- "BAMF" means "Naturalization Test".
- "Goethe-Institut", "TELC", "TestDaF-Institut", "ÖSD", "DSH" or "DSD" mean "Language Certificate".
- The exam date is labeled "Prüfungsdatum".

Return ONLY valid JSON inside a ` + "```json" + ` code block with these fields:
- "certificate_type": "Language Certificate" or "Naturalization Test"
- "institute_name": testing organization, e.g. "TELC", "Goethe-Institut", "BAMF", "VHS"
- "exam_date": YYYY-MM-DD
- "examinee_name": name on the certificate
- "achieved_level": "A1" to "C2", "TDN 3" to "TDN 5", or "DSH-1" to "DSH-3"
- "language": REQUIRED for language certificates, e.g. "DEU" or "Deutsch"; infer it if not stated
- "total_score": e.g. "120/160" or "25 von 33"
- "result_status": "PASSED" (bestanden), "FAILED" (nicht bestanden) or "PARTICIPATED" (teilgenommen)
- "has_signature": boolean
- "has_stamp": boolean

Copy text exactly as printed; do not assume "TELC" or "B1" unless visible. Unreadable fields are null.`
