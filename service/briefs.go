package service

const briefSmartContract = `Service: Smart Contract Audit
Analyze the following smart contract code. For the 'grade' field, you must return one of these exact string values: "A", "B", "C", or "D".
Your analysis must be exhaustive. For each function, analyze gas usage, logic, and potential edge cases. For each identified vulnerability, provide a multi-paragraph description explaining the technical details of the flaw, a practical exploit scenario, its potential business impact, and a clear, step-by-step recommendation with specific code examples for mitigation. Cover all common vulnerabilities including but not limited to: reentrancy, integer overflow/underflow, access control issues, front-running, unchecked external calls, gas optimization flaws, and logical errors.
Project Name: {{.projectName}}
Chain: {{.chain}}
Contract Code:
` + "```" + `
{{.contractCode}}
` + "```"

const briefL1L2 = `Service: L1/L2 Blockchain Audit
Analyze the following blockchain architecture based on its public repository. For the 'grade' field, you must return one of these exact string values: "A", "B", "C", or "D".
Provide a deep-dive analysis. Your review of the consensus mechanism should include its security properties, trade-offs, and comparison to established alternatives. The tokenomics review must include stress-test scenarios for price volatility, network load, and potential economic exploits. Discuss any potential centralization vectors in governance, validator set, or infrastructure. Your findings should be backed by evidence from the repository and documentation.
Project Name: {{.projectName}}
GitHub Repository: {{.githubRepo}}`

const briefPenTest = `Service: Blockchain Penetration Test Plan
Based on the provided dApp URL, devise a comprehensive penetration testing plan suitable for a professional security team. Do not perform the test. For the 'grade' field, you must return one of these exact string values: "A", "B", "C", or "D", reflecting a pre-test assessment of the project's attack surface.
Outline specific tools (e.g., Foundry, Hardhat, ZAP, Burp Suite) and techniques for each step. For web security, detail tests for the OWASP Top 10 vulnerabilities. For smart contract interaction, describe how you would stage attacks like oracle manipulation or transaction ordering attacks on a forked mainnet. The grade must be justified by a detailed breakdown of potential weak points.
Project Name: {{.projectName}}
Website URL: {{.websiteUrl}}`

const briefKYC = `Service: AI-Powered KYC Document Analysis
Analyze the provided information as a highly cautious compliance officer trying to prevent sophisticated fraud. For the 'grade' field, you must return one of these exact string values: "Verified", "Needs Review", or "Rejected".
The summary must explain the reasoning process behind the status. List every single observation as a finding, no matter how minor. For a 'Needs Review' status, provide a precise checklist of manual verification steps and required additional information. For a 'Rejected' status, provide a clear, non-negotiable reason.
Project Name: {{.projectName}}
Document Links Description: {{.documentLinks}}
Contact Email: {{.contactEmail}}`
